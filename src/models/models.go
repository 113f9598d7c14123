// backend/src/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Upload lifecycle statuses. An upload is created as pending, moves to
// processing when a worker picks it up, and ends in completed or failed.
// Terminal states never revert.
const (
	UploadStatusPending    = "pending"
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
)

// Anomaly review statuses. The detector only ever creates "open" anomalies;
// the review workflow moves them to confirmed or dismissed.
const (
	AnomalyStatusOpen      = "open"
	AnomalyStatusConfirmed = "confirmed"
	AnomalyStatusDismissed = "dismissed"
)

// Anomaly severities.
const (
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// ParsedTransaction is the normalized row a statement parser produces.
// Amount sign is the sole inflow/outflow signal: positive = credit,
// negative = debit, regardless of how the source file encodes it.
type ParsedTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// Upload is one uploaded statement file and its processing state.
type Upload struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"fileType"`
	Status     string    `json:"status"`
	RowCount   *int      `json:"rowCount,omitempty"`
	ErrorMsg   *string   `json:"errorMsg,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Transaction is a persisted statement row. Date, description, amount and
// currency are immutable after creation; category fields are written by the
// categorization engine or by a manual override.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UploadID      uuid.UUID       `json:"uploadId"`
	TxnDate       time.Time       `json:"txnDate"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CategoryID    *int64          `json:"categoryId,omitempty"`
	MatchedRuleID *int64          `json:"matchedRuleId,omitempty"`
	IsOverride    bool            `json:"isOverride"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Category is a spending/income bucket transactions are classified into.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsSystem bool   `json:"isSystem"`
}

// CategorizationRule maps a keyword to a category. Rules are evaluated in
// priority-descending order (id ascending on ties) and the first match wins.
// MatchCount is a usage counter incremented each time the rule matches.
type CategorizationRule struct {
	ID         int64     `json:"id"`
	Keyword    string    `json:"keyword"`
	CategoryID int64     `json:"categoryId"`
	Priority   int       `json:"priority"`
	MatchCount int64     `json:"matchCount"`
	IsSystem   bool      `json:"isSystem"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Anomaly is a flagged transaction awaiting human review.
type Anomaly struct {
	ID            uuid.UUID  `json:"id"`
	TransactionID uuid.UUID  `json:"transactionId"`
	RuleName      string     `json:"ruleName"`
	Severity      string     `json:"severity"`
	Detail        string     `json:"detail"`
	Status        string     `json:"status"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
