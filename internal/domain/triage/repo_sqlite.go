package triage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSQLiteSchema(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

func initSQLiteSchema(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS symptom_condition (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		symptoms           TEXT NOT NULL,
		possible_condition TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_symptom_condition_condition ON symptom_condition(possible_condition);

	CREATE TABLE IF NOT EXISTS medicines (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		name         TEXT NOT NULL UNIQUE,
		composition  TEXT NOT NULL DEFAULT '',
		category     TEXT,
		side_effects TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_medicines_category ON medicines(category);

	CREATE TABLE IF NOT EXISTS condition_medicine (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		condition             TEXT NOT NULL,
		recommended_medicines TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_condition_medicine_condition ON condition_medicine(condition);

	CREATE TABLE IF NOT EXISTS condition_precautions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		condition   TEXT NOT NULL,
		precautions TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_condition_precautions_condition ON condition_precautions(condition);

	CREATE TABLE IF NOT EXISTS purchases (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		condition  TEXT NOT NULL,
		medicine   TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_purchases_condition ON purchases(condition);

	CREATE TABLE IF NOT EXISTS history (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		requester_id         TEXT NOT NULL DEFAULT '',
		input_symptoms       TEXT NOT NULL,
		severity             TEXT NOT NULL,
		duration_days        INTEGER NOT NULL,
		risk_score           INTEGER NOT NULL,
		conditions_found     TEXT NOT NULL,
		recommended_medicine TEXT NOT NULL,
		created_at           DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_requester ON history(requester_id);
	`
	_, err := conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Empty reports whether the corpus table has no rows.
func (s *SQLiteStore) Empty(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symptom_condition`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

// Seed inserts every row of snap in a single transaction.
func (s *SQLiteStore) Seed(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range snap.Medicines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO medicines (name, composition, category, side_effects) VALUES (?, ?, ?, ?)`,
			m.Name, m.Composition, nullString(m.Category), nullString(m.SideEffects)); err != nil {
			return fmt.Errorf("insert medicine %s: %w", m.Name, err)
		}
	}
	for _, e := range snap.Corpus {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO symptom_condition (symptoms, possible_condition) VALUES (?, ?)`,
			e.SymptomText, e.ConditionName); err != nil {
			return fmt.Errorf("insert corpus entry: %w", err)
		}
	}
	for _, l := range snap.MedicineLinks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO condition_medicine (condition, recommended_medicines) VALUES (?, ?)`,
			l.ConditionName, l.RecommendedMedicines); err != nil {
			return fmt.Errorf("insert medicine link: %w", err)
		}
	}
	for _, l := range snap.PrecautionLinks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO condition_precautions (condition, precautions) VALUES (?, ?)`,
			l.ConditionName, l.Precautions); err != nil {
			return fmt.Errorf("insert precaution link: %w", err)
		}
	}
	for _, p := range snap.Purchases {
		ts := p.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchases (user_id, condition, medicine, created_at) VALUES (?, ?, ?, ?)`,
			p.UserID, p.ConditionName, p.MedicineName, ts); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
	}
	return tx.Commit()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func (s *SQLiteStore) ListCorpusEntries(ctx context.Context) ([]CorpusEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, symptoms, possible_condition FROM symptom_condition ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CorpusEntry
	for rows.Next() {
		var e CorpusEntry
		if err := rows.Scan(&e.ID, &e.SymptomText, &e.ConditionName); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) FindMedicineLink(ctx context.Context, condition string) (*ConditionMedicineLink, error) {
	var l ConditionMedicineLink
	err := s.db.QueryRowContext(ctx, `
		SELECT id, condition, recommended_medicines FROM condition_medicine
		WHERE condition = ? ORDER BY id LIMIT 1`, condition).
		Scan(&l.ID, &l.ConditionName, &l.RecommendedMedicines)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *SQLiteStore) FindPrecautionLink(ctx context.Context, condition string) (*ConditionPrecautionLink, error) {
	var l ConditionPrecautionLink
	err := s.db.QueryRowContext(ctx, `
		SELECT id, condition, precautions FROM condition_precautions
		WHERE condition = ? ORDER BY id LIMIT 1`, condition).
		Scan(&l.ID, &l.ConditionName, &l.Precautions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *SQLiteStore) FindPurchasesByCondition(ctx context.Context, condition string) ([]PurchaseEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, condition, medicine, created_at FROM purchases
		WHERE condition = ? ORDER BY id`, condition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PurchaseEvent
	for rows.Next() {
		var p PurchaseEvent
		if err := rows.Scan(&p.ID, &p.UserID, &p.ConditionName, &p.MedicineName, &p.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) FindMedicineByName(ctx context.Context, name string) (*MedicineRecord, error) {
	var m MedicineRecord
	var category, sideEffects sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, composition, category, side_effects FROM medicines
		WHERE name = ? ORDER BY id LIMIT 1`, name).
		Scan(&m.ID, &m.Name, &m.Composition, &category, &sideEffects)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Category = stringPtr(category)
	m.SideEffects = stringPtr(sideEffects)
	return &m, nil
}

func (s *SQLiteStore) FindMedicinesByCategory(ctx context.Context, category, excludeName string, limit int) ([]string, error) {
	return s.names(ctx, `
		SELECT name FROM medicines
		WHERE category = ? AND name <> ? ORDER BY id LIMIT ?`, category, excludeName, limit)
}

func (s *SQLiteStore) FindMedicinesByCompositionSubstring(ctx context.Context, token, excludeName string, limit int) ([]string, error) {
	return s.names(ctx, `
		SELECT name FROM medicines
		WHERE instr(lower(composition), lower(?)) > 0 AND name <> ? ORDER BY id LIMIT ?`, token, excludeName, limit)
}

func (s *SQLiteStore) names(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) InsertHistory(ctx context.Context, h *HistoryRecord) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (requester_id, input_symptoms, severity, duration_days,
			risk_score, conditions_found, recommended_medicine, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.RequesterID, h.NormalizedSymptoms, h.Severity, h.DurationDays,
		h.RiskScore, h.MatchedConditions, h.RecommendedMedicine, h.CreatedAt)
	if err != nil {
		return err
	}
	h.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) InsertPurchase(ctx context.Context, p *PurchaseEvent) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (user_id, condition, medicine, created_at) VALUES (?, ?, ?, ?)`,
		p.UserID, p.ConditionName, p.MedicineName, p.Timestamp)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListHistoryByRequester(ctx context.Context, requesterID string, limit, offset int) ([]HistoryRecord, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE requester_id = ?`, requesterID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+historyCols+` FROM history
		WHERE requester_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		requesterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []HistoryRecord{}
	for rows.Next() {
		var h HistoryRecord
		if err := rows.Scan(&h.ID, &h.RequesterID, &h.NormalizedSymptoms, &h.Severity, &h.DurationDays,
			&h.RiskScore, &h.MatchedConditions, &h.RecommendedMedicine, &h.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (s *SQLiteStore) PurchaseFrequencies(ctx context.Context) ([]PurchaseFrequency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT condition, medicine, COUNT(*) AS freq FROM purchases
		GROUP BY condition, medicine
		ORDER BY freq DESC, MIN(id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PurchaseFrequency
	for rows.Next() {
		var f PurchaseFrequency
		if err := rows.Scan(&f.ConditionName, &f.MedicineName, &f.Count); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
