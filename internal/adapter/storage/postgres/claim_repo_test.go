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

func newTestClaim(accountID uuid.UUID) *domain.Claim {
	return &domain.Claim{
		ID:           uuid.New(),
		AccountID:    accountID,
		CreditType:   "plastic-pet",
		Subtype:      "bottle",
		RawQuantity:  dec("500"),
		EvidenceRefs: []string{"photo://batch-42"},
		Status:       domain.ClaimStatusPending,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func claimColumnNames() []string {
	return []string{"id", "account_id", "credit_type", "subtype", "raw_quantity", "evidence_refs",
		"status", "minted_quantity", "rate_version", "decided_by", "created_at", "decided_at"}
}

func claimRow(c *domain.Claim) *pgxmock.Rows {
	return pgxmock.NewRows(claimColumnNames()).AddRow(
		c.ID, c.AccountID, c.CreditType, c.Subtype, c.RawQuantity, c.EvidenceRefs,
		string(c.Status), c.MintedQuantity, c.RateVersion, c.DecidedBy, c.CreatedAt, c.DecidedAt,
	)
}

func TestClaimRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)
	c := newTestClaim(uuid.New())

	mock.ExpectExec("INSERT INTO claims").
		WithArgs(c.ID, c.AccountID, c.CreditType, c.Subtype, c.RawQuantity, c.EvidenceRefs,
			string(c.Status), c.MintedQuantity, c.RateVersion, c.DecidedBy, c.CreatedAt, c.DecidedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)
	c := newTestClaim(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM claims WHERE id").
		WithArgs(c.ID).
		WillReturnRows(claimRow(c))

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, domain.ClaimStatusPending, got.Status)
	assert.True(t, got.RawQuantity.Equal(dec("500")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM claims WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(claimColumnNames()))

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)
	c := newTestClaim(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM claims WHERE id .+ FOR UPDATE").
		WithArgs(c.ID).
		WillReturnRows(claimRow(c))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	got, err := repo.GetByIDForUpdate(context.Background(), tx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepo_UpdateDecision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)
	c := newTestClaim(uuid.New())
	now := time.Now().UTC()
	c.Status = domain.ClaimStatusVerified
	c.MintedQuantity = dec("100")
	c.RateVersion = 1
	c.DecidedBy = "evaluator-7"
	c.DecidedAt = &now

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE claims").
		WithArgs(string(c.Status), c.MintedQuantity, c.RateVersion, c.DecidedBy, c.DecidedAt, c.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateDecision(context.Background(), tx, c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepo_UpdateDecision_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)
	c := newTestClaim(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE claims").
		WithArgs(string(c.Status), c.MintedQuantity, c.RateVersion, c.DecidedBy, c.DecidedAt, c.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateDecision(context.Background(), tx, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "claim not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepo_CountVerifiedByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClaimRepo(mock)
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM claims`).
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.CountVerifiedByAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
