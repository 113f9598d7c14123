// backend/src/services/anomaly_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/storage"
)

// Anomaly rule names.
const (
	RuleLargeAmount = "Large Amount"
	RuleDuplicate   = "Duplicate"
)

// largeAmountThreshold flags any transaction at or above this absolute value.
var largeAmountThreshold = decimal.RequireFromString("10000.00")

// AnomalyService scans one ingestion batch for suspicious transactions.
// Detection is strictly batch-scoped: prior uploads are never consulted.
type AnomalyService struct {
	anomalies storage.AnomalyStore
}

func NewAnomalyService(anomalies storage.AnomalyStore) *AnomalyService {
	return &AnomalyService{anomalies: anomalies}
}

// DetectAnomalies runs both rules over the batch and bulk-persists the
// results in one write. Every anomaly starts open with no review time.
//
// The duplicate rule emits one anomaly per unordered (i, j) pair with equal
// description, amount and date, attached to the transaction at index i. For
// k mutually identical transactions that is C(k,2) anomalies; the batch is
// bounded by one statement file, so the quadratic scan stays cheap.
func (s *AnomalyService) DetectAnomalies(txns []models.Transaction) error {
	var anomalies []models.Anomaly
	now := time.Now().UTC()

	for i := range txns {
		if txns[i].Amount.Abs().GreaterThanOrEqual(largeAmountThreshold) {
			anomalies = append(anomalies, newAnomaly(txns[i].ID, RuleLargeAmount, models.SeverityMedium,
				fmt.Sprintf("Transaction exceeds threshold of %s", largeAmountThreshold.StringFixed(2)), now))
		}

		for j := i + 1; j < len(txns); j++ {
			if txns[i].Description == txns[j].Description &&
				txns[i].Amount.Equal(txns[j].Amount) &&
				txns[i].TxnDate.Equal(txns[j].TxnDate) {
				anomalies = append(anomalies, newAnomaly(txns[i].ID, RuleDuplicate, models.SeverityHigh,
					"Potential duplicate with other transaction in this statement", now))
			}
		}
	}

	if err := s.anomalies.InsertAnomalies(anomalies); err != nil {
		return fmt.Errorf("failed to persist anomalies: %w", err)
	}

	logger.L.Debug("Anomaly detection complete", "transactions", len(txns), "anomalies", len(anomalies))
	return nil
}

func newAnomaly(txnID uuid.UUID, rule, severity, detail string, now time.Time) models.Anomaly {
	return models.Anomaly{
		ID:            uuid.New(),
		TransactionID: txnID,
		RuleName:      rule,
		Severity:      severity,
		Detail:        detail,
		Status:        models.AnomalyStatusOpen,
		CreatedAt:     now,
	}
}
