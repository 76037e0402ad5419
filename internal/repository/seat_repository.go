package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/seating-core/internal/apperr"
	"github.com/iliyamo/seating-core/internal/inventory"
	"github.com/iliyamo/seating-core/internal/model"
)

// SeatRepo stores per-seat status in seat_inventory.  Every status change
// is a single conditional UPDATE, which makes it the compare-and-set the
// hold manager relies on.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `event_seating_id, seat_uid, section_id, row_label, seat_label, status, base_status, COALESCE(hold_id, ''), version`

type scanner interface {
	Scan(dest ...any) error
}

func scanSeat(row scanner) (model.Seat, error) {
	var s model.Seat
	err := row.Scan(&s.EventSeatingID, &s.SeatUID, &s.SectionID, &s.RowLabel, &s.SeatLabel, &s.Status, &s.BaseStatus, &s.HoldID, &s.Version)
	return s, err
}

func (r *SeatRepo) Get(ctx context.Context, seatingID, seatUID string) (model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seat_inventory WHERE event_seating_id = ? AND seat_uid = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, seatingID, seatUID))
	if err != nil {
		return model.Seat{}, translate(err, "seat", seatUID)
	}
	return s, nil
}

func (r *SeatRepo) List(ctx context.Context, seatingID string) ([]model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seat_inventory WHERE event_seating_id = ? ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q, seatingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, apperr.NotFound("seating", seatingID)
	}
	return seats, nil
}

// CompareAndSet issues one UPDATE guarded by the expected status (and
// owner, for held seats).  Zero affected rows means the CAS lost, unless
// the seat does not exist at all.
func (r *SeatRepo) CompareAndSet(ctx context.Context, seatingID, seatUID string, t inventory.Transition) (bool, error) {
	if t.From == model.SeatDisabled || t.To == model.SeatDisabled {
		return false, nil
	}
	if t.To == model.SeatHeld && t.NewOwner == "" {
		return false, nil
	}
	q := `UPDATE seat_inventory SET status = ?, hold_id = ?, version = version + 1
	      WHERE event_seating_id = ? AND seat_uid = ? AND status = ?`
	args := []any{t.To, nullString(inventory.OwnerAfter(t)), seatingID, seatUID, t.From}
	if t.From == model.SeatHeld {
		q += ` AND hold_id = ?`
		args = append(args, t.Owner)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("cas seat %s: %w", seatUID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seat_inventory WHERE event_seating_id = ? AND seat_uid = ?`, seatingID, seatUID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, apperr.NotFound("seat", seatUID)
	}
	return false, nil
}

// Seed inserts the seats of a layout in one statement.  INSERT IGNORE keeps
// the status of seats that already exist.
func (r *SeatRepo) Seed(ctx context.Context, seatingID string, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT IGNORE INTO seat_inventory (event_seating_id, seat_uid, section_id, row_label, seat_label, status, base_status, position) VALUES `
	args := make([]interface{}, 0, len(seats)*8)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		status := s.Status
		if status == "" {
			status = model.SeatAvailable
		}
		if s.BaseStatus == model.BaseStatusUnavailable {
			status = model.SeatDisabled
		}
		args = append(args, seatingID, s.SeatUID, s.SectionID, s.RowLabel, s.SeatLabel, status, s.BaseStatus, i)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// SetBaseStatus locks the row, applies the same rule as the memory store
// and writes the result back.
func (r *SeatRepo) SetBaseStatus(ctx context.Context, seatingID, seatUID string, base model.BaseStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT ` + seatColumns + ` FROM seat_inventory WHERE event_seating_id = ? AND seat_uid = ? FOR UPDATE`
	seat, err := scanSeat(tx.QueryRowContext(ctx, q, seatingID, seatUID))
	if err != nil {
		return translate(err, "seat", seatUID)
	}
	next, err := inventory.BaseTransition(seat, base)
	if err != nil {
		return err
	}
	if next == seat.Status {
		_, err = tx.ExecContext(ctx, `UPDATE seat_inventory SET base_status = ? WHERE event_seating_id = ? AND seat_uid = ?`, base, seatingID, seatUID)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE seat_inventory SET base_status = ?, status = ?, hold_id = NULL, version = version + 1 WHERE event_seating_id = ? AND seat_uid = ?`, base, next, seatingID, seatUID)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}
