package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-core/internal/apperr"
	"github.com/iliyamo/seating-core/internal/model"
)

func newCatalogRepo(t *testing.T) (*CatalogRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCatalogRepo(db), mock
}

func TestCatalogSeatingDecodesLayout(t *testing.T) {
	repo, mock := newCatalogRepo(t)
	cols := []string{"id", "event_id", "name", "commission_mode", "commission_rate", "target_price_cents", "hold_ttl_seconds", "sections", "published_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM event_seatings WHERE id = ?")).
		WithArgs("es-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("es-1", "ev-1", "Main hall", "added_on_top", 7.5, nil, 600,
			[]byte(`[{"id":"S1","name":"Stalls","rows":[{"label":"A","seats":[{"seat_uid":"A1","label":"1"}]}]}]`), t0))

	s, err := repo.Seating(context.Background(), "es-1")
	require.NoError(t, err)
	assert.Equal(t, model.CommissionAddedOnTop, s.CommissionMode)
	require.NotNil(t, s.CommissionRate)
	assert.Equal(t, 7.5, *s.CommissionRate)
	assert.Nil(t, s.TargetPriceCents)
	assert.Equal(t, 10*time.Minute, s.HoldTTL)
	loc, ok := s.Locate("A1")
	require.True(t, ok)
	assert.Equal(t, "S1", loc.SectionID)
}

func TestCatalogPutSeatingTwiceConflicts(t *testing.T) {
	repo, mock := newCatalogRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO event_seatings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'es-1' for key 'PRIMARY'"})

	err := repo.PutSeating(context.Background(), &model.EventSeating{ID: "es-1", PublishedAt: t0})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCatalogTicketTypes(t *testing.T) {
	repo, mock := newCatalogRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM event_seatings")).
		WithArgs("es-9").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	_, err := repo.TicketTypes(context.Background(), "es-9")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM event_seatings")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY position")).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"id":"vip","base_price_cents":20000,"has_seating":true,"seating_sections":[{"section_id":"S1"}]}`)).
			AddRow([]byte(`{"id":"std","base_price_cents":10000,"has_seating":true,"seating_sections":[{"section_id":"S1"}]}`)))
	types, err := repo.TicketTypes(context.Background(), "es-1")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "vip", types[0].ID, "declaration order is kept")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogSaveOverridesUpserts(t *testing.T) {
	repo, mock := newCatalogRepo(t)
	rate := 10.0
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE base_price_cents")).
		WithArgs("es-1", "A1", "std", int64(9000), "", nil, t0, "es-1", "A1", "vip", int64(9500), "added_on_top", 10.0, t0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.SaveOverrides(context.Background(), "es-1", []model.PriceOverride{
		{SeatUID: "A1", TicketTypeID: "std", BasePriceCents: 9000, UpdatedAt: t0},
		{SeatUID: "A1", TicketTypeID: "vip", BasePriceCents: 9500, CommissionMode: model.CommissionAddedOnTop, CommissionRate: &rate, UpdatedAt: t0},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogOverridesKeyedBySeatAndType(t *testing.T) {
	repo, mock := newCatalogRepo(t)
	cols := []string{"seat_uid", "ticket_type_id", "base_price_cents", "commission_mode", "commission_rate", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM price_overrides WHERE event_seating_id = ?")).
		WithArgs("es-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("A1", "std", 11000, "", nil, t0).
			AddRow("A1", "vip", 33000, "", nil, t0))

	got, err := repo.Overrides(context.Background(), "es-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(11000), got[model.OverrideKey("A1", "std")].BasePriceCents)
	assert.Equal(t, int64(33000), got[model.OverrideKey("A1", "vip")].BasePriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}
