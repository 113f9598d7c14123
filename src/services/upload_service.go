// backend/src/services/upload_service.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/parsers"
	"github.com/statify/backend/src/storage"
)

const (
	ckUploadSummary = "summary_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type uploadServiceImpl struct {
	store        storage.Store
	parsers      []parsers.FileParser
	categorizer  *CategorizationService
	detector     *AnomalyService
	dispatcher   *Dispatcher
	summaryCache *cache.Cache
}

// NewUploadService wires the ingestion pipeline together and starts its
// worker pool.
func NewUploadService(
	store storage.Store,
	parserRegistry []parsers.FileParser,
	categorizer *CategorizationService,
	detector *AnomalyService,
	workers, queueSize int,
	summaryCache *cache.Cache,
) UploadService {
	s := &uploadServiceImpl{
		store:        store,
		parsers:      parserRegistry,
		categorizer:  categorizer,
		detector:     detector,
		summaryCache: summaryCache,
	}
	s.dispatcher = NewDispatcher(workers, queueSize, s.runIngestion)
	return s
}

// InitiateUpload creates the pending upload record and returns immediately;
// no parsing happens here.
func (s *uploadServiceImpl) InitiateUpload(filename string) (*models.Upload, error) {
	upload := &models.Upload{
		ID:         uuid.New(),
		Filename:   filename,
		FileType:   FileExtension(filename),
		Status:     models.UploadStatusPending,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUpload(upload); err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}
	logger.L.Info("Upload initiated", "uploadID", upload.ID, "filename", filename, "fileType", upload.FileType)
	return upload, nil
}

// ProcessUpload queues the upload for asynchronous ingestion. The caller
// does not block on completion and learns the outcome by polling GetUpload.
func (s *uploadServiceImpl) ProcessUpload(uploadID uuid.UUID, content []byte) error {
	return s.dispatcher.Enqueue(uploadID, content)
}

func (s *uploadServiceImpl) GetUpload(uploadID uuid.UUID) (*models.Upload, error) {
	upload, err := s.store.GetUpload(uploadID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUploadNotFound
	}
	return upload, err
}

// runIngestion is the worker body: the five pipeline steps run strictly in
// sequence, and whatever happens after the processing mark, the upload
// always ends in a terminal status. Failures are captured as the upload's
// error message and never escape the task boundary.
func (s *uploadServiceImpl) runIngestion(uploadID uuid.UUID, content []byte) {
	start := time.Now()
	logger.L.Info("Ingestion START", "uploadID", uploadID)

	upload, err := s.store.GetUpload(uploadID)
	if err != nil {
		// The record was created by InitiateUpload moments ago; its absence
		// is an internal fault and there is no row to write a status to.
		logger.L.Error("Ingestion: upload record missing", "uploadID", uploadID, "error", err)
		return
	}

	upload.Status = models.UploadStatusProcessing
	if err := s.store.UpdateUpload(upload); err != nil {
		logger.L.Error("Ingestion: failed to mark upload processing", "uploadID", uploadID, "error", err)
		return
	}

	var (
		procErr  error
		rowCount int
	)
	defer func() {
		if r := recover(); r != nil {
			procErr = fmt.Errorf("internal error: %v", r)
		}
		if procErr != nil {
			msg := procErr.Error()
			upload.Status = models.UploadStatusFailed
			upload.ErrorMsg = &msg
			logger.L.Warn("Ingestion FAILED", "uploadID", uploadID, "error", msg, "duration", time.Since(start))
		} else {
			upload.Status = models.UploadStatusCompleted
			upload.RowCount = &rowCount
			logger.L.Info("Ingestion END", "uploadID", uploadID, "rows", rowCount, "duration", time.Since(start))
		}
		if err := s.store.UpdateUpload(upload); err != nil {
			logger.L.Error("Ingestion: failed to write terminal status", "uploadID", uploadID, "error", err)
		}
		s.invalidateSummary(uploadID)
	}()

	parser, err := parsers.GetParser(s.parsers, upload.FileType)
	if err != nil {
		procErr = err
		return
	}

	drafts, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		procErr = fmt.Errorf("%w: %v", ErrParsingFailed, err)
		return
	}

	now := time.Now().UTC()
	txns := make([]models.Transaction, 0, len(drafts))
	for _, draft := range drafts {
		txns = append(txns, models.Transaction{
			ID:          uuid.New(),
			UploadID:    upload.ID,
			TxnDate:     draft.Date,
			Description: draft.Description,
			Amount:      draft.Amount,
			Currency:    draft.Currency,
			CreatedAt:   now,
		})
	}

	if err := s.categorizer.CategorizeTransactions(txns); err != nil {
		procErr = err
		return
	}

	if err := s.store.InsertTransactions(txns); err != nil {
		procErr = err
		return
	}

	if err := s.detector.DetectAnomalies(txns); err != nil {
		procErr = err
		return
	}

	rowCount = len(txns)
}

// GetSummary computes (or serves from cache) the aggregate view over one
// upload's transactions and anomalies.
func (s *uploadServiceImpl) GetSummary(uploadID uuid.UUID) (*UploadSummary, error) {
	cacheKey := fmt.Sprintf(ckUploadSummary, uploadID)
	if cached, found := s.summaryCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for upload summary", "uploadID", uploadID)
		return cached.(*UploadSummary), nil
	}

	if _, err := s.GetUpload(uploadID); err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactionsByUpload(uploadID)
	if err != nil {
		return nil, err
	}
	anomalies, err := s.store.ListAnomaliesByUpload(uploadID)
	if err != nil {
		return nil, err
	}

	summary := &UploadSummary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		TxnCount:     len(txns),
		AnomalyCount: len(anomalies),
		ByCategory:   make(map[int64]decimal.Decimal),
	}
	for _, txn := range txns {
		if txn.Amount.IsPositive() {
			summary.TotalIncome = summary.TotalIncome.Add(txn.Amount)
			continue
		}
		expense := txn.Amount.Abs()
		summary.TotalExpense = summary.TotalExpense.Add(expense)
		if txn.CategoryID != nil {
			summary.ByCategory[*txn.CategoryID] = summary.ByCategory[*txn.CategoryID].Add(expense)
		}
	}
	summary.NetBalance = summary.TotalIncome.Sub(summary.TotalExpense)

	s.summaryCache.Set(cacheKey, summary, DefaultCacheExpiration)
	return summary, nil
}

// BuildReportCSV renders the completed upload's transactions as a CSV
// export, bounded by the caller's context deadline.
func (s *uploadServiceImpl) BuildReportCSV(ctx context.Context, uploadID uuid.UUID) ([]byte, error) {
	if _, err := s.GetUpload(uploadID); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		txns, err := s.store.ListTransactionsByUpload(uploadID)
		if err != nil {
			done <- result{nil, err}
			return
		}
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"Date", "Description", "Amount", "Currency", "CategoryID"})
		for _, txn := range txns {
			categoryID := ""
			if txn.CategoryID != nil {
				categoryID = fmt.Sprintf("%d", *txn.CategoryID)
			}
			_ = w.Write([]string{
				txn.TxnDate.Format("2006-01-02"),
				txn.Description,
				txn.Amount.StringFixed(2),
				txn.Currency,
				categoryID,
			})
		}
		w.Flush()
		done <- result{buf.Bytes(), w.Error()}
	}()

	select {
	case <-ctx.Done():
		return nil, ErrReportTimeout
	case r := <-done:
		return r.data, r.err
	}
}

// Close drains the worker pool.
func (s *uploadServiceImpl) Close() {
	s.dispatcher.Close()
}

func (s *uploadServiceImpl) invalidateSummary(uploadID uuid.UUID) {
	s.summaryCache.Delete(fmt.Sprintf(ckUploadSummary, uploadID))
}

// FileExtension returns the lowercased extension of a filename, without the
// dot, or "" if there is none.
func FileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
