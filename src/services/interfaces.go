// backend/src/services/interfaces.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/statify/backend/src/models"
)

// UploadSummary holds the aggregate figures for one upload's dashboard view.
type UploadSummary struct {
	TotalIncome  decimal.Decimal           `json:"totalIncome"`
	TotalExpense decimal.Decimal           `json:"totalExpense"`
	NetBalance   decimal.Decimal           `json:"netBalance"`
	TxnCount     int                       `json:"txnCount"`
	AnomalyCount int                       `json:"anomalyCount"`
	ByCategory   map[int64]decimal.Decimal `json:"byCategory"`
}

// UploadService owns the upload lifecycle: synchronous initiation, queued
// asynchronous processing, and read access to results. Status polling via
// GetUpload is the only way for a caller to observe completion.
type UploadService interface {
	InitiateUpload(filename string) (*models.Upload, error)
	ProcessUpload(uploadID uuid.UUID, content []byte) error
	GetUpload(uploadID uuid.UUID) (*models.Upload, error)
	GetSummary(uploadID uuid.UUID) (*UploadSummary, error)
	BuildReportCSV(ctx context.Context, uploadID uuid.UUID) ([]byte, error)
	Close()
}
