package memory

import (
	"context"
	"sort"
	"time"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Methods that take a pgx.Tx run inside an open transaction, which
// already holds the store mutex; they must not lock. Methods without a
// transaction lock for the duration of the call.

// ClaimRepo implements ports.ClaimRepository.
type ClaimRepo struct{ store *Store }

// NewClaimRepo creates a ClaimRepo.
func NewClaimRepo(store *Store) *ClaimRepo { return &ClaimRepo{store: store} }

func (r *ClaimRepo) Create(_ context.Context, claim *domain.Claim) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.claims[claim.ID] = *claim
	return nil
}

func (r *ClaimRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Claim, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	claim, ok := r.store.claims[id]
	if !ok {
		return nil, nil
	}
	return &claim, nil
}

func (r *ClaimRepo) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Claim, error) {
	claim, ok := r.store.claims[id]
	if !ok {
		return nil, nil
	}
	return &claim, nil
}

func (r *ClaimRepo) UpdateDecision(_ context.Context, _ pgx.Tx, claim *domain.Claim) error {
	r.store.claims[claim.ID] = *claim
	return nil
}

func (r *ClaimRepo) CountVerifiedByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, claim := range r.store.claims {
		if claim.AccountID == accountID && claim.Status == domain.ClaimStatusVerified {
			n++
		}
	}
	return n, nil
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ store *Store }

// NewLedgerRepo creates a LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo { return &LedgerRepo{store: store} }

func (r *LedgerRepo) AppendEntry(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
	r.store.nextSeq++
	entry.Seq = r.store.nextSeq
	r.store.entries = append(r.store.entries, *entry)
	return nil
}

func (r *LedgerRepo) GetBalance(_ context.Context, accountID uuid.UUID, asset string) (*domain.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	bal, ok := r.store.balances[balanceKey{accountID, asset}]
	if !ok {
		return nil, nil
	}
	return &bal, nil
}

func (r *LedgerRepo) GetBalanceForUpdate(_ context.Context, _ pgx.Tx, accountID uuid.UUID, asset string) (*domain.Balance, error) {
	bal, ok := r.store.balances[balanceKey{accountID, asset}]
	if !ok {
		bal = domain.Balance{
			AccountID: accountID,
			Asset:     asset,
			Available: decimal.Zero,
			Reserved:  decimal.Zero,
		}
	}
	return &bal, nil
}

func (r *LedgerRepo) UpsertBalance(_ context.Context, _ pgx.Tx, balance *domain.Balance) error {
	r.store.balances[balanceKey{balance.AccountID, balance.Asset}] = *balance
	return nil
}

func (r *LedgerRepo) SumDeltas(_ context.Context, _ pgx.Tx, accountID uuid.UUID, asset string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for i := range r.store.entries {
		e := &r.store.entries[i]
		if e.AccountID == accountID && e.Asset == asset {
			sum = sum.Add(e.Delta)
		}
	}
	return sum, nil
}

func (r *LedgerRepo) History(_ context.Context, accountID uuid.UUID, asset string, afterSeq int64, limit int) ([]domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.LedgerEntry
	for i := range r.store.entries {
		e := r.store.entries[i]
		if e.AccountID == accountID && e.Asset == asset && e.Seq > afterSeq {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *LedgerRepo) ListBalances(_ context.Context, accountID uuid.UUID) ([]domain.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Balance
	for key, bal := range r.store.balances {
		if key.account == accountID {
			out = append(out, bal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct{ store *Store }

// NewOrderRepo creates an OrderRepo.
func NewOrderRepo(store *Store) *OrderRepo { return &OrderRepo{store: store} }

func (r *OrderRepo) Create(_ context.Context, _ pgx.Tx, order *domain.Order) error {
	r.store.orders[order.ID] = *order
	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (r *OrderRepo) UpdateFill(_ context.Context, _ pgx.Tx, order *domain.Order) error {
	r.store.orders[order.ID] = *order
	return nil
}

func (r *OrderRepo) Cancel(_ context.Context, _ pgx.Tx, order *domain.Order) error {
	r.store.orders[order.ID] = *order
	return nil
}

func (r *OrderRepo) ListOpen(_ context.Context, creditType string) ([]domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Order
	for _, order := range r.store.orders {
		if order.CreditType == creditType && !order.IsTerminal() {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *OrderRepo) MaxSeq(_ context.Context, creditType string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var maxSeq int64
	for _, order := range r.store.orders {
		if order.CreditType == creditType && order.Seq > maxSeq {
			maxSeq = order.Seq
		}
	}
	return maxSeq, nil
}

// TradeRepo implements ports.TradeRepository.
type TradeRepo struct{ store *Store }

// NewTradeRepo creates a TradeRepo.
func NewTradeRepo(store *Store) *TradeRepo { return &TradeRepo{store: store} }

func (r *TradeRepo) Create(_ context.Context, _ pgx.Tx, trade *domain.Trade) error {
	r.store.trades = append(r.store.trades, *trade)
	return nil
}

func (r *TradeRepo) ListByCreditType(_ context.Context, creditType string, limit int) ([]domain.Trade, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Trade
	for i := len(r.store.trades) - 1; i >= 0; i-- {
		if r.store.trades[i].CreditType == creditType {
			out = append(out, r.store.trades[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *TradeRepo) MaxSeq(_ context.Context, creditType string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var maxSeq int64
	for i := range r.store.trades {
		t := &r.store.trades[i]
		if t.CreditType == creditType && t.Seq > maxSeq {
			maxSeq = t.Seq
		}
	}
	return maxSeq, nil
}

func (r *TradeRepo) CountByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for i := range r.store.trades {
		t := &r.store.trades[i]
		if t.BuyerID == accountID || t.SellerID == accountID {
			n++
		}
	}
	return n, nil
}

// RateRepo implements ports.RateRepository.
type RateRepo struct{ store *Store }

// NewRateRepo creates a RateRepo.
func NewRateRepo(store *Store) *RateRepo { return &RateRepo{store: store} }

func (r *RateRepo) Upsert(_ context.Context, rate *domain.Rate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.rates {
		existing := &r.store.rates[i]
		if existing.CreditType == rate.CreditType && existing.Subtype == rate.Subtype && existing.Version == rate.Version {
			*existing = *rate
			return nil
		}
	}
	r.store.rates = append(r.store.rates, *rate)
	return nil
}

func (r *RateRepo) FindEffective(_ context.Context, creditType, subtype string, at time.Time) (*domain.Rate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if rate := r.findEffective(creditType, subtype, at); rate != nil {
		return rate, nil
	}
	if subtype != "" {
		// Fall back to the credit type's default rate.
		if rate := r.findEffective(creditType, "", at); rate != nil {
			return rate, nil
		}
	}
	return nil, nil
}

func (r *RateRepo) findEffective(creditType, subtype string, at time.Time) *domain.Rate {
	var best *domain.Rate
	for i := range r.store.rates {
		rate := &r.store.rates[i]
		if rate.CreditType != creditType || rate.Subtype != subtype || rate.EffectiveFrom.After(at) {
			continue
		}
		if best == nil || rate.Version > best.Version {
			best = rate
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ store *Store }

// NewAuditRepo creates an AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo { return &AuditRepo{store: store} }

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audits = append(r.store.audits, *log)
	return nil
}

// ListRecent returns the newest audit entries, most recent first.
func (r *AuditRepo) ListRecent(_ context.Context, limit int) ([]domain.AuditLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.AuditLog
	for i := len(r.store.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.store.audits[i])
	}
	return out, nil
}
