// backend/src/services/upload_service_test.go
package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/parsers"
	"github.com/statify/backend/src/parsers/csvparser"
	"github.com/statify/backend/src/storage"
)

const sampleCSV = `Date,Description,Withdrawal,Deposit
01/03/2024,KFC CENTRAL WORLD,350.50,
02/03/2024,SALARY MARCH,,45000.00
03/03/2024,LOCAL NOODLE STALL,80.00,
`

func newTestService(t *testing.T, store storage.Store) UploadService {
	t.Helper()
	registry := []parsers.FileParser{csvparser.NewParser("THB")}
	service := NewUploadService(
		store,
		registry,
		NewCategorizationService(store),
		NewAnomalyService(store),
		1, 4,
		cache.New(time.Minute, time.Minute),
	)
	t.Cleanup(service.Close)
	return service
}

func waitForTerminalStatus(t *testing.T, service UploadService, uploadID uuid.UUID) *models.Upload {
	t.Helper()
	var upload *models.Upload
	require.Eventually(t, func() bool {
		u, err := service.GetUpload(uploadID)
		if err != nil {
			return false
		}
		upload = u
		return u.Status == models.UploadStatusCompleted || u.Status == models.UploadStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
	return upload
}

func TestInitiateUpload_CreatesPendingRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	service := newTestService(t, store)

	upload, err := service.InitiateUpload("statement-march.csv")
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, upload.Status)
	assert.Equal(t, "csv", upload.FileType)
	assert.Nil(t, upload.RowCount)
	assert.Nil(t, upload.ErrorMsg)

	stored, err := store.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, stored.Status)
}

func TestProcessUpload_CompletesPipeline(t *testing.T) {
	store := seedRuleStore(t)
	service := newTestService(t, store)

	upload, err := service.InitiateUpload("statement-march.csv")
	require.NoError(t, err)
	require.NoError(t, service.ProcessUpload(upload.ID, []byte(sampleCSV)))

	final := waitForTerminalStatus(t, service, upload.ID)
	require.Equal(t, models.UploadStatusCompleted, final.Status)
	require.NotNil(t, final.RowCount)
	assert.Equal(t, 3, *final.RowCount)
	assert.Nil(t, final.ErrorMsg)

	txns, err := store.ListTransactionsByUpload(upload.ID)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	// The KFC row must be categorized; the noodle stall matches no rule.
	require.NotNil(t, txns[0].CategoryID)
	assert.Equal(t, int64(1), *txns[0].CategoryID)
	assert.Nil(t, txns[2].CategoryID)

	// 45000.00 salary crosses the large-amount threshold.
	anomalies, err := store.ListAnomaliesByUpload(upload.ID)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, RuleLargeAmount, anomalies[0].RuleName)
}

func TestProcessUpload_UnsupportedExtensionFails(t *testing.T) {
	store := storage.NewMemoryStore()
	service := newTestService(t, store)

	upload, err := service.InitiateUpload("statement.txt")
	require.NoError(t, err)
	require.NoError(t, service.ProcessUpload(upload.ID, []byte("whatever")))

	final := waitForTerminalStatus(t, service, upload.ID)
	require.Equal(t, models.UploadStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMsg)
	assert.Contains(t, *final.ErrorMsg, "no parser available")
}

func TestProcessUpload_ParseErrorFails(t *testing.T) {
	store := storage.NewMemoryStore()
	service := newTestService(t, store)

	badCSV := "Date,Description,Withdrawal,Deposit\nnot-a-date,ROW,10.00,\n"
	upload, err := service.InitiateUpload("broken.csv")
	require.NoError(t, err)
	require.NoError(t, service.ProcessUpload(upload.ID, []byte(badCSV)))

	final := waitForTerminalStatus(t, service, upload.ID)
	require.Equal(t, models.UploadStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMsg)
	assert.Contains(t, *final.ErrorMsg, "parsing failed")

	// Nothing is persisted from a failed parse.
	txns, err := store.ListTransactionsByUpload(upload.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestGetUpload_Unknown(t *testing.T) {
	store := storage.NewMemoryStore()
	service := newTestService(t, store)

	_, err := service.GetUpload(uuid.New())
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestGetSummary_Aggregates(t *testing.T) {
	store := seedRuleStore(t)
	service := newTestService(t, store)

	upload, err := service.InitiateUpload("statement-march.csv")
	require.NoError(t, err)
	require.NoError(t, service.ProcessUpload(upload.ID, []byte(sampleCSV)))
	waitForTerminalStatus(t, service, upload.ID)

	summary, err := service.GetSummary(upload.ID)
	require.NoError(t, err)

	assert.True(t, summary.TotalIncome.Equal(decimal.RequireFromString("45000.00")), "got %s", summary.TotalIncome)
	assert.True(t, summary.TotalExpense.Equal(decimal.RequireFromString("430.50")), "got %s", summary.TotalExpense)
	assert.True(t, summary.NetBalance.Equal(decimal.RequireFromString("44569.50")), "got %s", summary.NetBalance)
	assert.Equal(t, 3, summary.TxnCount)
	assert.Equal(t, 1, summary.AnomalyCount)
	// Only the categorized KFC expense lands in the category breakdown.
	assert.True(t, summary.ByCategory[1].Equal(decimal.RequireFromString("350.50")))

	// Second call is served from cache and must agree.
	cached, err := service.GetSummary(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, summary, cached)
}

func TestBuildReportCSV(t *testing.T) {
	store := seedRuleStore(t)
	service := newTestService(t, store)

	upload, err := service.InitiateUpload("statement-march.csv")
	require.NoError(t, err)
	require.NoError(t, service.ProcessUpload(upload.ID, []byte(sampleCSV)))
	waitForTerminalStatus(t, service, upload.ID)

	data, err := service.BuildReportCSV(context.Background(), upload.ID)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Description,Amount,Currency,CategoryID", lines[0])
	assert.Equal(t, "2024-03-01,KFC CENTRAL WORLD,-350.50,THB,1", lines[1])
}

type slowListStore struct {
	*storage.MemoryStore
}

func (s slowListStore) ListTransactionsByUpload(uploadID uuid.UUID) ([]models.Transaction, error) {
	time.Sleep(200 * time.Millisecond)
	return s.MemoryStore.ListTransactionsByUpload(uploadID)
}

func TestBuildReportCSV_Timeout(t *testing.T) {
	store := slowListStore{storage.NewMemoryStore()}
	service := newTestService(t, store)

	upload, err := service.InitiateUpload("statement.csv")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = service.BuildReportCSV(ctx, upload.ID)
	assert.ErrorIs(t, err, ErrReportTimeout)
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "csv", FileExtension("statement.csv"))
	assert.Equal(t, "xlsx", FileExtension("Q1.Report.XLSX"))
	assert.Equal(t, "", FileExtension("no-extension"))
	assert.Equal(t, "", FileExtension("trailing-dot."))
}
