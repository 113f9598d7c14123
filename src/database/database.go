// backend/src/database/database.go
package database

import (
	"database/sql"
	stdlog "log"
	"time"

	"github.com/statify/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	if err := Migrate(DB); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if err := Seed(DB); err != nil {
		logger.L.Error("failed to seed defaults", "error", err)
		stdlog.Fatalf("failed to seed defaults: %v", err)
	}
	logger.L.Info("Database tables ensured/created.")
}

// Migrate creates the schema if it does not exist yet.
func Migrate(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		file_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		row_count INTEGER,
		error_msg TEXT,
		uploaded_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL DEFAULT '#6366F1',
		is_system BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS categorization_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		keyword TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		match_count INTEGER NOT NULL DEFAULT 0,
		is_system BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(category_id) REFERENCES categories(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		upload_id TEXT NOT NULL,
		txn_date TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		category_id INTEGER,
		matched_rule_id INTEGER,
		is_override BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(upload_id) REFERENCES uploads(id),
		FOREIGN KEY(category_id) REFERENCES categories(id)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_upload ON transactions(upload_id);

	CREATE TABLE IF NOT EXISTS anomalies (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		severity TEXT NOT NULL,
		detail TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		reviewed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY(transaction_id) REFERENCES transactions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_anomalies_transaction ON anomalies(transaction_id);
	`
	_, err := db.Exec(createTableStatement)
	return err
}

// seedCategory pairs a category with the system rules that feed it.
type seedCategory struct {
	name  string
	color string
	rules []seedRule
}

type seedRule struct {
	keyword  string
	priority int
}

var defaultCategories = []seedCategory{
	{"Income", "#22C55E", []seedRule{
		{"SALARY", 20}, {"PAYROLL", 20}, {"INTEREST", 15}, {"DIVIDEND", 15},
	}},
	{"Food & Dining", "#F97316", []seedRule{
		{"KFC", 10}, {"MCDONALD", 10}, {"STARBUCKS", 10}, {"FOODPANDA", 10}, {"GRABFOOD", 12},
	}},
	{"Transport", "#3B82F6", []seedRule{
		{"GRAB", 8}, {"BTS", 8}, {"MRT", 8}, {"BOLT", 8}, {"SHELL", 8}, {"PTT", 8},
	}},
	{"Shopping", "#EC4899", []seedRule{
		{"SHOPEE", 10}, {"LAZADA", 10}, {"7-ELEVEN", 10}, {"BIG C", 10}, {"LOTUS", 10},
	}},
	{"Bills & Utilities", "#8B5CF6", []seedRule{
		{"TRUE", 6}, {"AIS", 6}, {"MEA", 6}, {"MWA", 6}, {"ELECTRIC", 6},
	}},
	{"Entertainment", "#EAB308", []seedRule{
		{"NETFLIX", 10}, {"SPOTIFY", 10}, {"CINEMA", 8},
	}},
	{"Transfers", "#64748B", []seedRule{
		{"TRANSFER", 2}, {"PROMPTPAY", 4},
	}},
}

// Seed inserts the system categories and categorization rules on a fresh
// database. A database that already has categories is left untouched.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, cat := range defaultCategories {
		res, err := db.Exec(
			`INSERT INTO categories (name, color, is_system) VALUES (?, ?, TRUE)`,
			cat.name, cat.color)
		if err != nil {
			return err
		}
		categoryID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, rule := range cat.rules {
			_, err := db.Exec(
				`INSERT INTO categorization_rules (keyword, category_id, priority, match_count, is_system, created_at)
				 VALUES (?, ?, ?, 0, TRUE, ?)`,
				rule.keyword, categoryID, rule.priority, now)
			if err != nil {
				return err
			}
		}
	}
	logger.L.Info("Seeded system categories and rules", "categories", len(defaultCategories))
	return nil
}
