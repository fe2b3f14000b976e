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

func newTestDBTrade() *domain.Trade {
	return &domain.Trade{
		ID:          uuid.New(),
		CreditType:  "plastic-pet",
		BuyOrderID:  uuid.New(),
		SellOrderID: uuid.New(),
		BuyerID:     uuid.New(),
		SellerID:    uuid.New(),
		Quantity:    dec("60"),
		Price:       dec("125"),
		Seq:         9,
		ExecutedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTradeRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTradeRepo(mock)
	tr := newTestDBTrade()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trades").
		WithArgs(tr.ID, tr.CreditType, tr.BuyOrderID, tr.SellOrderID, tr.BuyerID,
			tr.SellerID, tr.Quantity, tr.Price, tr.Seq, tr.ExecutedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), tx, tr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepo_MaxSeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTradeRepo(mock)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM trades`).
		WithArgs("plastic-pet").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(9)))

	seq, err := repo.MaxSeq(context.Background(), "plastic-pet")
	require.NoError(t, err)
	assert.Equal(t, int64(9), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepo_MaxSeq_EmptyTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTradeRepo(mock)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM trades`).
		WithArgs("water").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

	seq, err := repo.MaxSeq(context.Background(), "water")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
