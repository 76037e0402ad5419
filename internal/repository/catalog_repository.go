package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/seating-core/internal/apperr"
	"github.com/iliyamo/seating-core/internal/model"
)

// CatalogRepo persists published layouts, their ticket types and seat
// price overrides.  Sections and ticket types are stored as JSON documents
// since they are only ever read whole.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to db.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) Seating(ctx context.Context, id string) (*model.EventSeating, error) {
	const q = `SELECT id, event_id, name, commission_mode, commission_rate, target_price_cents, hold_ttl_seconds, sections, published_at
	           FROM event_seatings WHERE id = ?`
	var (
		s        model.EventSeating
		rate     sql.NullFloat64
		target   sql.NullInt64
		ttlSec   int64
		sections []byte
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.EventID, &s.Name, &s.CommissionMode, &rate, &target, &ttlSec, &sections, &s.PublishedAt)
	if err != nil {
		return nil, translate(err, "seating", id)
	}
	if err := json.Unmarshal(sections, &s.Sections); err != nil {
		return nil, fmt.Errorf("decode sections of %s: %w", id, err)
	}
	s.CommissionRate = floatPtr(rate)
	s.TargetPriceCents = intPtr(target)
	s.HoldTTL = time.Duration(ttlSec) * time.Second
	s.PublishedAt = s.PublishedAt.UTC()
	return &s, nil
}

// PutSeating inserts a layout.  Publishing the same id twice is a conflict.
func (r *CatalogRepo) PutSeating(ctx context.Context, s *model.EventSeating) error {
	sections, err := json.Marshal(s.Sections)
	if err != nil {
		return err
	}
	const q = `INSERT INTO event_seatings (id, event_id, name, commission_mode, commission_rate, target_price_cents, hold_ttl_seconds, sections, published_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q, s.ID, s.EventID, s.Name, s.CommissionMode, nullFloat(s.CommissionRate), nullInt(s.TargetPriceCents),
		int64(s.HoldTTL/time.Second), sections, s.PublishedAt.UTC())
	return translate(err, "seating", s.ID)
}

// TicketTypes returns the ticket types in declaration order.
func (r *CatalogRepo) TicketTypes(ctx context.Context, seatingID string) ([]model.TicketType, error) {
	if err := r.exists(ctx, seatingID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT body FROM ticket_types WHERE event_seating_id = ? ORDER BY position`, seatingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []model.TicketType
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var tt model.TicketType
		if err := json.Unmarshal(body, &tt); err != nil {
			return nil, fmt.Errorf("decode ticket type: %w", err)
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}

// PutTicketTypes replaces every ticket type of a seating.
func (r *CatalogRepo) PutTicketTypes(ctx context.Context, seatingID string, types []model.TicketType) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_types WHERE event_seating_id = ?`, seatingID); err != nil {
		return err
	}
	if len(types) > 0 {
		query := `INSERT INTO ticket_types (event_seating_id, id, position, body) VALUES `
		args := make([]interface{}, 0, len(types)*4)
		for i, tt := range types {
			body, err := json.Marshal(tt)
			if err != nil {
				return err
			}
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, seatingID, tt.ID, i, body)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translate(err, "ticket type", seatingID)
		}
	}
	return tx.Commit()
}

func (r *CatalogRepo) Overrides(ctx context.Context, seatingID string) (map[string]model.PriceOverride, error) {
	const q = `SELECT seat_uid, ticket_type_id, base_price_cents, commission_mode, commission_rate, updated_at
	           FROM price_overrides WHERE event_seating_id = ?`
	rows, err := r.db.QueryContext(ctx, q, seatingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]model.PriceOverride)
	for rows.Next() {
		var (
			o    model.PriceOverride
			rate sql.NullFloat64
		)
		if err := rows.Scan(&o.SeatUID, &o.TicketTypeID, &o.BasePriceCents, &o.CommissionMode, &rate, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.CommissionRate = floatPtr(rate)
		o.UpdatedAt = o.UpdatedAt.UTC()
		out[o.Key()] = o
	}
	return out, rows.Err()
}

// SaveOverrides upserts overrides in one statement.
func (r *CatalogRepo) SaveOverrides(ctx context.Context, seatingID string, overrides []model.PriceOverride) error {
	if len(overrides) == 0 {
		return nil
	}
	query := `INSERT INTO price_overrides (event_seating_id, seat_uid, ticket_type_id, base_price_cents, commission_mode, commission_rate, updated_at) VALUES `
	args := make([]interface{}, 0, len(overrides)*7)
	for i, o := range overrides {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, seatingID, o.SeatUID, o.TicketTypeID, o.BasePriceCents, o.CommissionMode, nullFloat(o.CommissionRate), o.UpdatedAt.UTC())
	}
	query += ` ON DUPLICATE KEY UPDATE base_price_cents = VALUES(base_price_cents), commission_mode = VALUES(commission_mode),
	           commission_rate = VALUES(commission_rate), updated_at = VALUES(updated_at)`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *CatalogRepo) exists(ctx context.Context, seatingID string) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_seatings WHERE id = ?`, seatingID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("seating", seatingID)
	}
	return nil
}
