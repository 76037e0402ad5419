package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seating-core/internal/apperr"
	"github.com/iliyamo/seating-core/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds and seat_hold_seats
// tables.  A hold is one seat_holds row keyed by hold_token plus one
// seat_hold_seats row per seat.  All timestamps are stored in UTC.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Save inserts or rewrites a hold with its seats.
func (r *SeatHoldRepo) Save(ctx context.Context, h model.SeatHold) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO seat_holds (hold_token, event_seating_id, holder_id, held_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE expires_at = VALUES(expires_at)`,
		h.ID, h.EventSeatingID, h.HolderID, h.HeldAt.UTC(), h.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_hold_seats WHERE hold_token = ?`, h.ID); err != nil {
		return err
	}
	if len(h.Seats) > 0 {
		query := `INSERT INTO seat_hold_seats (hold_token, seat_uid, ticket_type_id, position) VALUES `
		args := make([]interface{}, 0, len(h.Seats)*4)
		for i, s := range h.Seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, h.ID, s.SeatUID, s.TicketTypeID, i)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SeatHoldRepo) Get(ctx context.Context, id string) (model.SeatHold, error) {
	return loadHold(ctx, r.db, id, false)
}

// FindByHolder returns the most recent hold of a holder on a seating.
func (r *SeatHoldRepo) FindByHolder(ctx context.Context, holderID, seatingID string) (model.SeatHold, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT hold_token FROM seat_holds WHERE holder_id = ? AND event_seating_id = ? ORDER BY id DESC LIMIT 1`,
		holderID, seatingID).Scan(&token)
	if err != nil {
		return model.SeatHold{}, translate(err, "hold for holder", holderID)
	}
	return r.Get(ctx, token)
}

// Touch moves the deadline only while the hold is still live at now.
func (r *SeatHoldRepo) Touch(ctx context.Context, id string, now, expiresAt time.Time) (model.SeatHold, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seat_holds SET expires_at = ? WHERE hold_token = ? AND expires_at > ?`,
		expiresAt.UTC(), id, now.UTC())
	if err != nil {
		return model.SeatHold{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.SeatHold{}, err
	}
	h, err := r.Get(ctx, id)
	if err != nil {
		return model.SeatHold{}, err
	}
	if n == 0 && h.Expired(now) {
		return model.SeatHold{}, apperr.ErrHoldExpired
	}
	return h, nil
}

// Take deletes a hold and returns what it held.  The row lock makes
// concurrent takers of the same hold serialize; the loser sees not found.
func (r *SeatHoldRepo) Take(ctx context.Context, id string) (model.SeatHold, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SeatHold{}, err
	}
	defer func() { _ = tx.Rollback() }()

	h, err := loadHold(ctx, tx, id, true)
	if err != nil {
		return model.SeatHold{}, err
	}
	if err := deleteHold(ctx, tx, id); err != nil {
		return model.SeatHold{}, err
	}
	return h, tx.Commit()
}

// TakeExpired deletes and returns up to limit lapsed holds, oldest first.
// SKIP LOCKED lets several sweepers run side by side.
func (r *SeatHoldRepo) TakeExpired(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
	if limit <= 0 {
		limit = 500
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT hold_token FROM seat_holds WHERE expires_at <= ? ORDER BY expires_at LIMIT ? FOR UPDATE SKIP LOCKED`,
		now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for rows.Next() {
		var t string
		if scanErr := rows.Scan(&t); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		tokens = append(tokens, t)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	holds := make([]model.SeatHold, 0, len(tokens))
	for _, t := range tokens {
		h, err := loadHold(ctx, tx, t, false)
		if err != nil {
			return nil, err
		}
		if err := deleteHold(ctx, tx, t); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, tx.Commit()
}

func loadHold(ctx context.Context, q querier, id string, lock bool) (model.SeatHold, error) {
	head := `SELECT hold_token, event_seating_id, holder_id, held_at, expires_at FROM seat_holds WHERE hold_token = ?`
	if lock {
		head += ` FOR UPDATE`
	}
	var h model.SeatHold
	err := q.QueryRowContext(ctx, head, id).Scan(&h.ID, &h.EventSeatingID, &h.HolderID, &h.HeldAt, &h.ExpiresAt)
	if err != nil {
		return model.SeatHold{}, translate(err, "hold", id)
	}
	h.HeldAt, h.ExpiresAt = h.HeldAt.UTC(), h.ExpiresAt.UTC()

	rows, err := q.QueryContext(ctx, `SELECT seat_uid, ticket_type_id FROM seat_hold_seats WHERE hold_token = ? ORDER BY position`, id)
	if err != nil {
		return model.SeatHold{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.HeldSeat
		if err := rows.Scan(&s.SeatUID, &s.TicketTypeID); err != nil {
			return model.SeatHold{}, err
		}
		h.Seats = append(h.Seats, s)
	}
	return h, rows.Err()
}

func deleteHold(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_hold_seats WHERE hold_token = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE hold_token = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("hold", id)
	}
	return nil
}
