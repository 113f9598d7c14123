// backend/src/storage/sqlite.go
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/statify/backend/src/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// SQLiteStore implements Store on top of a database/sql connection to
// sqlite (modernc.org/sqlite driver).
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ── Uploads ──

func (s *SQLiteStore) CreateUpload(upload *models.Upload) error {
	_, err := s.db.Exec(
		`INSERT INTO uploads (id, filename, file_type, status, row_count, error_msg, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		upload.ID.String(), upload.Filename, upload.FileType, upload.Status,
		nullableInt(upload.RowCount), nullableString(upload.ErrorMsg), upload.UploadedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("error inserting upload: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUpload(upload *models.Upload) error {
	res, err := s.db.Exec(
		`UPDATE uploads SET status = ?, row_count = ?, error_msg = ? WHERE id = ?`,
		upload.Status, nullableInt(upload.RowCount), nullableString(upload.ErrorMsg), upload.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("error updating upload: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetUpload(id uuid.UUID) (*models.Upload, error) {
	row := s.db.QueryRow(
		`SELECT id, filename, file_type, status, row_count, error_msg, uploaded_at FROM uploads WHERE id = ?`,
		id.String(),
	)
	return scanUpload(row)
}

func scanUpload(row *sql.Row) (*models.Upload, error) {
	var (
		upload     models.Upload
		idStr      string
		rowCount   sql.NullInt64
		errorMsg   sql.NullString
		uploadedAt string
	)
	err := row.Scan(&idStr, &upload.Filename, &upload.FileType, &upload.Status, &rowCount, &errorMsg, &uploadedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning upload: %w", err)
	}
	upload.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing upload id: %w", err)
	}
	if rowCount.Valid {
		n := int(rowCount.Int64)
		upload.RowCount = &n
	}
	if errorMsg.Valid {
		m := errorMsg.String
		upload.ErrorMsg = &m
	}
	upload.UploadedAt, _ = time.Parse(timeLayout, uploadedAt)
	return &upload, nil
}

// ── Transactions ──

func (s *SQLiteStore) InsertTransactions(txns []models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(
		`INSERT INTO transactions (id, upload_id, txn_date, description, amount, currency, category_id, matched_rule_id, is_override, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, txn := range txns {
		_, err := stmt.Exec(
			txn.ID.String(), txn.UploadID.String(), txn.TxnDate.Format(dateLayout),
			txn.Description, txn.Amount.String(), txn.Currency,
			nullableInt64(txn.CategoryID), nullableInt64(txn.MatchedRuleID),
			txn.IsOverride, txn.CreatedAt.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("error inserting transaction: %w", err)
		}
	}
	return dbTx.Commit()
}

func (s *SQLiteStore) GetTransaction(id uuid.UUID) (*models.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT id, upload_id, txn_date, description, amount, currency, category_id, matched_rule_id, is_override, created_at
		 FROM transactions WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	txn, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return txn, rows.Err()
}

func (s *SQLiteStore) ListTransactionsByUpload(uploadID uuid.UUID) ([]models.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT id, upload_id, txn_date, description, amount, currency, category_id, matched_rule_id, is_override, created_at
		 FROM transactions WHERE upload_id = ? ORDER BY txn_date ASC, created_at ASC`, uploadID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func (s *SQLiteStore) UpdateTransactionCategory(id uuid.UUID, categoryID int64, override bool) error {
	res, err := s.db.Exec(
		`UPDATE transactions SET category_id = ?, is_override = ? WHERE id = ?`,
		categoryID, override, id.String())
	if err != nil {
		return fmt.Errorf("error updating transaction category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var (
		txn           models.Transaction
		idStr         string
		uploadIDStr   string
		txnDate       string
		amountStr     string
		categoryID    sql.NullInt64
		matchedRuleID sql.NullInt64
		createdAt     string
	)
	err := rows.Scan(&idStr, &uploadIDStr, &txnDate, &txn.Description, &amountStr, &txn.Currency,
		&categoryID, &matchedRuleID, &txn.IsOverride, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("error scanning transaction: %w", err)
	}
	if txn.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if txn.UploadID, err = uuid.Parse(uploadIDStr); err != nil {
		return nil, err
	}
	if txn.TxnDate, err = time.Parse(dateLayout, txnDate); err != nil {
		return nil, fmt.Errorf("error parsing transaction date: %w", err)
	}
	if txn.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("error parsing transaction amount: %w", err)
	}
	if categoryID.Valid {
		v := categoryID.Int64
		txn.CategoryID = &v
	}
	if matchedRuleID.Valid {
		v := matchedRuleID.Int64
		txn.MatchedRuleID = &v
	}
	txn.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &txn, nil
}

// ── Categories ──

func (s *SQLiteStore) ListCategories() ([]models.Category, error) {
	rows, err := s.db.Query(`SELECT id, name, color, is_system FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.IsSystem); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLiteStore) GetCategory(id int64) (*models.Category, error) {
	var c models.Category
	err := s.db.QueryRow(`SELECT id, name, color, is_system FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Color, &c.IsSystem)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ── Rules ──

func (s *SQLiteStore) ListRulesByPriority() ([]models.CategorizationRule, error) {
	rows, err := s.db.Query(
		`SELECT id, keyword, category_id, priority, match_count, is_system, created_at
		 FROM categorization_rules ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.CategorizationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) GetRule(id int64) (*models.CategorizationRule, error) {
	rows, err := s.db.Query(
		`SELECT id, keyword, category_id, priority, match_count, is_system, created_at
		 FROM categorization_rules WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	rule, err := scanRule(rows)
	if err != nil {
		return nil, err
	}
	return rule, rows.Err()
}

func (s *SQLiteStore) CreateRule(rule *models.CategorizationRule) error {
	res, err := s.db.Exec(
		`INSERT INTO categorization_rules (keyword, category_id, priority, match_count, is_system, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rule.Keyword, rule.CategoryID, rule.Priority, rule.MatchCount, rule.IsSystem,
		rule.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("error inserting rule: %w", err)
	}
	rule.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) UpdateRule(rule *models.CategorizationRule) error {
	res, err := s.db.Exec(
		`UPDATE categorization_rules SET keyword = ?, category_id = ?, priority = ? WHERE id = ?`,
		rule.Keyword, rule.CategoryID, rule.Priority, rule.ID)
	if err != nil {
		return fmt.Errorf("error updating rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteRule(id int64) error {
	res, err := s.db.Exec(`DELETE FROM categorization_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) IncrementRuleMatchCounts(deltas map[int64]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`UPDATE categorization_rules SET match_count = match_count + ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("error preparing increment statement: %w", err)
	}
	defer stmt.Close()

	for ruleID, delta := range deltas {
		if _, err := stmt.Exec(delta, ruleID); err != nil {
			return fmt.Errorf("error incrementing match count for rule %d: %w", ruleID, err)
		}
	}
	return dbTx.Commit()
}

func scanRule(rows *sql.Rows) (*models.CategorizationRule, error) {
	var (
		rule      models.CategorizationRule
		createdAt string
	)
	err := rows.Scan(&rule.ID, &rule.Keyword, &rule.CategoryID, &rule.Priority,
		&rule.MatchCount, &rule.IsSystem, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("error scanning rule: %w", err)
	}
	rule.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &rule, nil
}

// ── Anomalies ──

func (s *SQLiteStore) InsertAnomalies(anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(
		`INSERT INTO anomalies (id, transaction_id, rule_name, severity, detail, status, reviewed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range anomalies {
		var reviewedAt interface{}
		if a.ReviewedAt != nil {
			reviewedAt = a.ReviewedAt.Format(timeLayout)
		}
		_, err := stmt.Exec(a.ID.String(), a.TransactionID.String(), a.RuleName,
			a.Severity, a.Detail, a.Status, reviewedAt, a.CreatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("error inserting anomaly: %w", err)
		}
	}
	return dbTx.Commit()
}

func (s *SQLiteStore) GetAnomaly(id uuid.UUID) (*models.Anomaly, error) {
	rows, err := s.db.Query(
		`SELECT id, transaction_id, rule_name, severity, detail, status, reviewed_at, created_at
		 FROM anomalies WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	anomaly, err := scanAnomaly(rows)
	if err != nil {
		return nil, err
	}
	return anomaly, rows.Err()
}

func (s *SQLiteStore) ListAnomaliesByUpload(uploadID uuid.UUID) ([]models.Anomaly, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.transaction_id, a.rule_name, a.severity, a.detail, a.status, a.reviewed_at, a.created_at
		 FROM anomalies a
		 JOIN transactions t ON t.id = a.transaction_id
		 WHERE t.upload_id = ?
		 ORDER BY a.created_at DESC, a.id DESC`, uploadID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []models.Anomaly
	for rows.Next() {
		anomaly, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, *anomaly)
	}
	return anomalies, rows.Err()
}

func (s *SQLiteStore) UpdateAnomalyStatus(id uuid.UUID, status string, reviewedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE anomalies SET status = ?, reviewed_at = ? WHERE id = ?`,
		status, reviewedAt.Format(timeLayout), id.String())
	if err != nil {
		return fmt.Errorf("error updating anomaly status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAnomaly(rows *sql.Rows) (*models.Anomaly, error) {
	var (
		anomaly    models.Anomaly
		idStr      string
		txnIDStr   string
		reviewedAt sql.NullString
		createdAt  string
	)
	err := rows.Scan(&idStr, &txnIDStr, &anomaly.RuleName, &anomaly.Severity,
		&anomaly.Detail, &anomaly.Status, &reviewedAt, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("error scanning anomaly: %w", err)
	}
	if anomaly.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if anomaly.TransactionID, err = uuid.Parse(txnIDStr); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		if t, err := time.Parse(timeLayout, reviewedAt.String); err == nil {
			anomaly.ReviewedAt = &t
		}
	}
	anomaly.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &anomaly, nil
}

// ── helpers ──

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
