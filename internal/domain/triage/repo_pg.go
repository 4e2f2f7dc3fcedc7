package triage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/symcheck/symcheck/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

// conn prefers the request-scoped connection set by db.SessionMiddleware.
func (r *storePG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *storePG) ListCorpusEntries(ctx context.Context) ([]CorpusEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, symptoms, possible_condition FROM symptom_condition ORDER BY id`)
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

func (r *storePG) FindMedicineLink(ctx context.Context, condition string) (*ConditionMedicineLink, error) {
	var l ConditionMedicineLink
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, condition, recommended_medicines FROM condition_medicine
		WHERE condition = $1 ORDER BY id LIMIT 1`, condition).
		Scan(&l.ID, &l.ConditionName, &l.RecommendedMedicines)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *storePG) FindPrecautionLink(ctx context.Context, condition string) (*ConditionPrecautionLink, error) {
	var l ConditionPrecautionLink
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, condition, precautions FROM condition_precautions
		WHERE condition = $1 ORDER BY id LIMIT 1`, condition).
		Scan(&l.ID, &l.ConditionName, &l.Precautions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *storePG) FindPurchasesByCondition(ctx context.Context, condition string) ([]PurchaseEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, condition, medicine, created_at FROM purchases
		WHERE condition = $1 ORDER BY id`, condition)
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

func (r *storePG) FindMedicineByName(ctx context.Context, name string) (*MedicineRecord, error) {
	var m MedicineRecord
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, composition, category, side_effects FROM medicines
		WHERE name = $1 ORDER BY id LIMIT 1`, name).
		Scan(&m.ID, &m.Name, &m.Composition, &m.Category, &m.SideEffects)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *storePG) FindMedicinesByCategory(ctx context.Context, category, excludeName string, limit int) ([]string, error) {
	return r.names(ctx, `
		SELECT name FROM medicines
		WHERE category = $1 AND name <> $2 ORDER BY id LIMIT $3`, category, excludeName, limit)
}

func (r *storePG) FindMedicinesByCompositionSubstring(ctx context.Context, token, excludeName string, limit int) ([]string, error) {
	return r.names(ctx, `
		SELECT name FROM medicines
		WHERE strpos(lower(composition), lower($1)) > 0 AND name <> $2 ORDER BY id LIMIT $3`, token, excludeName, limit)
}

func (r *storePG) names(ctx context.Context, sql string, args ...interface{}) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
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

func (r *storePG) InsertHistory(ctx context.Context, h *HistoryRecord) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO history (requester_id, input_symptoms, severity, duration_days,
			risk_score, conditions_found, recommended_medicine, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		h.RequesterID, h.NormalizedSymptoms, h.Severity, h.DurationDays,
		h.RiskScore, h.MatchedConditions, h.RecommendedMedicine, h.CreatedAt).
		Scan(&h.ID)
}

func (r *storePG) InsertPurchase(ctx context.Context, p *PurchaseEvent) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO purchases (user_id, condition, medicine, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		p.UserID, p.ConditionName, p.MedicineName, p.Timestamp).
		Scan(&p.ID)
}

const historyCols = `id, requester_id, input_symptoms, severity, duration_days,
	risk_score, conditions_found, recommended_medicine, created_at`

func (r *storePG) ListHistoryByRequester(ctx context.Context, requesterID string, limit, offset int) ([]HistoryRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM history WHERE requester_id = $1`, requesterID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+historyCols+` FROM history
		WHERE requester_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
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

func (r *storePG) PurchaseFrequencies(ctx context.Context) ([]PurchaseFrequency, error) {
	rows, err := r.conn(ctx).Query(ctx, `
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
