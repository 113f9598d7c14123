// backend/src/storage/storage.go
package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/statify/backend/src/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// UploadStore persists upload lifecycle records.
type UploadStore interface {
	CreateUpload(upload *models.Upload) error
	UpdateUpload(upload *models.Upload) error
	GetUpload(id uuid.UUID) (*models.Upload, error)
}

// TransactionStore persists statement transactions.
type TransactionStore interface {
	InsertTransactions(txns []models.Transaction) error
	GetTransaction(id uuid.UUID) (*models.Transaction, error)
	// ListTransactionsByUpload returns an upload's transactions ordered by
	// transaction date ascending.
	ListTransactionsByUpload(uploadID uuid.UUID) ([]models.Transaction, error)
	UpdateTransactionCategory(id uuid.UUID, categoryID int64, override bool) error
}

// CategoryStore persists categories.
type CategoryStore interface {
	ListCategories() ([]models.Category, error)
	GetCategory(id int64) (*models.Category, error)
}

// RuleStore persists categorization rules.
type RuleStore interface {
	// ListRulesByPriority returns all rules ordered by priority descending,
	// id ascending on ties. This ordering is the rule evaluation order.
	ListRulesByPriority() ([]models.CategorizationRule, error)
	GetRule(id int64) (*models.CategorizationRule, error)
	CreateRule(rule *models.CategorizationRule) error
	UpdateRule(rule *models.CategorizationRule) error
	DeleteRule(id int64) error
	// IncrementRuleMatchCounts applies per-rule match-count deltas as atomic
	// in-place increments, so concurrent categorization batches never lose
	// updates.
	IncrementRuleMatchCounts(deltas map[int64]int64) error
}

// AnomalyStore persists detected anomalies.
type AnomalyStore interface {
	InsertAnomalies(anomalies []models.Anomaly) error
	GetAnomaly(id uuid.UUID) (*models.Anomaly, error)
	// ListAnomaliesByUpload returns anomalies attached to an upload's
	// transactions, most recent first.
	ListAnomaliesByUpload(uploadID uuid.UUID) ([]models.Anomaly, error)
	UpdateAnomalyStatus(id uuid.UUID, status string, reviewedAt time.Time) error
}

// Store is the full persistence collaborator the pipeline depends on.
type Store interface {
	UploadStore
	TransactionStore
	CategoryStore
	RuleStore
	AnomalyStore
}
