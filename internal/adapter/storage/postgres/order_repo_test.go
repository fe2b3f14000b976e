package postgres

import (
	"context"
	"testing"
	"time"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDBOrder() *domain.Order {
	return &domain.Order{
		ID:         uuid.New(),
		AccountID:  uuid.New(),
		CreditType: "plastic-pet",
		Side:       domain.OrderSideSell,
		Price:      dec("125"),
		Quantity:   dec("100"),
		Remaining:  dec("100"),
		Status:     domain.OrderStatusOpen,
		Seq:        7,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func orderColumnNames() []string {
	return []string{"id", "account_id", "credit_type", "side", "price", "quantity",
		"remaining", "status", "seq", "created_at", "cancelled_at"}
}

func orderRow(o *domain.Order) *pgxmock.Rows {
	return pgxmock.NewRows(orderColumnNames()).AddRow(
		o.ID, o.AccountID, o.CreditType, string(o.Side), o.Price, o.Quantity,
		o.Remaining, string(o.Status), o.Seq, o.CreatedAt, o.CancelledAt,
	)
}

func TestOrderRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestDBOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.AccountID, o.CreditType, string(o.Side), o.Price,
			o.Quantity, o.Remaining, string(o.Status), o.Seq, o.CreatedAt, o.CancelledAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), tx, o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestDBOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(o.ID).
		WillReturnRows(orderRow(o))

	got, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, domain.OrderSideSell, got.Side)
	assert.True(t, got.Price.Equal(dec("125")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(orderColumnNames()))

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_UpdateFill(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestDBOrder()
	o.Remaining = dec("40")
	o.Status = domain.OrderStatusPartiallyFilled

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET remaining").
		WithArgs(o.Remaining, string(o.Status), o.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateFill(context.Background(), tx, o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Cancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestDBOrder()
	now := time.Now().UTC()
	o.Status = domain.OrderStatusCancelled
	o.CancelledAt = &now

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(string(o.Status), o.CancelledAt, o.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Cancel(context.Background(), tx, o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListOpen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	a := newTestDBOrder()
	b := newTestDBOrder()
	b.Seq = 9
	b.Status = domain.OrderStatusPartiallyFilled
	b.Remaining = dec("10")

	rows := pgxmock.NewRows(orderColumnNames()).
		AddRow(a.ID, a.AccountID, a.CreditType, string(a.Side), a.Price, a.Quantity,
			a.Remaining, string(a.Status), a.Seq, a.CreatedAt, a.CancelledAt).
		AddRow(b.ID, b.AccountID, b.CreditType, string(b.Side), b.Price, b.Quantity,
			b.Remaining, string(b.Status), b.Seq, b.CreatedAt, b.CancelledAt)

	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs("plastic-pet").
		WillReturnRows(rows)

	open, err := repo.ListOpen(context.Background(), "plastic-pet")
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, int64(7), open[0].Seq)
	assert.Equal(t, domain.OrderStatusPartiallyFilled, open[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_MaxSeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM orders`).
		WithArgs("plastic-pet").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(12)))

	seq, err := repo.MaxSeq(context.Background(), "plastic-pet")
	require.NoError(t, err)
	assert.Equal(t, int64(12), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
