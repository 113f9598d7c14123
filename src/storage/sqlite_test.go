// backend/src/storage/sqlite_test.go
package storage

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/statify/backend/src/database"
	"github.com/statify/backend/src/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewSQLiteStore(db)
}

func TestSQLite_UploadLifecycle(t *testing.T) {
	store := newTestStore(t)

	upload := &models.Upload{
		ID:         uuid.New(),
		Filename:   "statement.csv",
		FileType:   "csv",
		Status:     models.UploadStatusPending,
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateUpload(upload))

	got, err := store.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, got.Status)
	assert.Nil(t, got.RowCount)
	assert.Nil(t, got.ErrorMsg)

	rows := 42
	upload.Status = models.UploadStatusCompleted
	upload.RowCount = &rows
	require.NoError(t, store.UpdateUpload(upload))

	got, err = store.GetUpload(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCompleted, got.Status)
	require.NotNil(t, got.RowCount)
	assert.Equal(t, 42, *got.RowCount)

	_, err = store.GetUpload(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.UpdateUpload(&models.Upload{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_TransactionsOrderedByDate(t *testing.T) {
	store := newTestStore(t)
	uploadID := uuid.New()
	now := time.Now().UTC()

	txns := []models.Transaction{
		{
			ID: uuid.New(), UploadID: uploadID,
			TxnDate:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			Description: "LATER", Amount: decimal.RequireFromString("-10.00"),
			Currency: "THB", CreatedAt: now,
		},
		{
			ID: uuid.New(), UploadID: uploadID,
			TxnDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Description: "EARLIER", Amount: decimal.RequireFromString("-20.00"),
			Currency: "THB", CreatedAt: now,
		},
	}
	require.NoError(t, store.InsertTransactions(txns))

	listed, err := store.ListTransactionsByUpload(uploadID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "EARLIER", listed[0].Description)
	assert.True(t, listed[0].Amount.Equal(decimal.RequireFromString("-20.00")))
}

func TestSQLite_UpdateTransactionCategory(t *testing.T) {
	store := newTestStore(t)
	uploadID := uuid.New()
	txn := models.Transaction{
		ID: uuid.New(), UploadID: uploadID,
		TxnDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "KFC", Amount: decimal.RequireFromString("-350.50"),
		Currency: "THB", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertTransactions([]models.Transaction{txn}))

	require.NoError(t, store.UpdateTransactionCategory(txn.ID, 7, true))

	got, err := store.GetTransaction(txn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(7), *got.CategoryID)
	assert.True(t, got.IsOverride)

	err = store.UpdateTransactionCategory(uuid.New(), 7, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_RulePriorityOrderAndIncrements(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	low := &models.CategorizationRule{Keyword: "GRAB", CategoryID: 1, Priority: 8, CreatedAt: now}
	high := &models.CategorizationRule{Keyword: "GRABFOOD", CategoryID: 2, Priority: 12, CreatedAt: now}
	require.NoError(t, store.CreateRule(low))
	require.NoError(t, store.CreateRule(high))

	rules, err := store.ListRulesByPriority()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "GRABFOOD", rules[0].Keyword, "highest priority first")

	require.NoError(t, store.IncrementRuleMatchCounts(map[int64]int64{high.ID: 3}))
	got, err := store.GetRule(high.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.MatchCount)
}

func TestSQLite_AnomaliesJoinUpload(t *testing.T) {
	store := newTestStore(t)
	uploadID := uuid.New()
	otherUpload := uuid.New()
	now := time.Now().UTC()

	mine := models.Transaction{
		ID: uuid.New(), UploadID: uploadID,
		TxnDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Description: "BIG",
		Amount: decimal.RequireFromString("-25000.00"), Currency: "THB", CreatedAt: now,
	}
	theirs := models.Transaction{
		ID: uuid.New(), UploadID: otherUpload,
		TxnDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Description: "OTHER",
		Amount: decimal.RequireFromString("-30000.00"), Currency: "THB", CreatedAt: now,
	}
	require.NoError(t, store.InsertTransactions([]models.Transaction{mine, theirs}))

	anomalies := []models.Anomaly{
		{ID: uuid.New(), TransactionID: mine.ID, RuleName: "Large Amount", Severity: models.SeverityMedium,
			Detail: "over threshold", Status: models.AnomalyStatusOpen, CreatedAt: now},
		{ID: uuid.New(), TransactionID: theirs.ID, RuleName: "Large Amount", Severity: models.SeverityMedium,
			Detail: "over threshold", Status: models.AnomalyStatusOpen, CreatedAt: now},
	}
	require.NoError(t, store.InsertAnomalies(anomalies))

	listed, err := store.ListAnomaliesByUpload(uploadID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].TransactionID)
	assert.Nil(t, listed[0].ReviewedAt)

	reviewedAt := now.Add(time.Hour)
	require.NoError(t, store.UpdateAnomalyStatus(listed[0].ID, models.AnomalyStatusDismissed, reviewedAt))
	got, err := store.GetAnomaly(listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnomalyStatusDismissed, got.Status)
	require.NotNil(t, got.ReviewedAt)
}

func TestSQLite_SeedIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	require.NoError(t, database.Seed(db))

	store := NewSQLiteStore(db)
	categories, err := store.ListCategories()
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	rules, err := store.ListRulesByPriority()
	require.NoError(t, err)
	require.NotEmpty(t, rules)
	for _, r := range rules {
		assert.True(t, r.IsSystem, "seeded rules are system rules")
	}

	// Seeding twice must not duplicate the catalog.
	names := make(map[string]int)
	for _, c := range categories {
		names[c.Name]++
	}
	for name, count := range names {
		assert.Equal(t, 1, count, "category %q duplicated by reseed", name)
	}
}
