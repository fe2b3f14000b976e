package service

import (
	"context"
	"fmt"
	"time"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/internal/engine"
	"credit-exchange/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradingServiceImpl owns order placement, matching, settlement, and
// cancellation. All mutations for one credit type run under that book's
// lock, so a matching pass is a single critical section: plan fills
// against the in-memory book, persist everything in one transaction, then
// apply the book mutations only after commit. A rollback leaves the book
// exactly as the pass found it. Logging, event publishing, and auditing
// happen after the lock is released; the only external I/O inside the
// critical section is the pass's own transaction.
type TradingServiceImpl struct {
	orderRepo  ports.OrderRepository
	tradeRepo  ports.TradeRepository
	ledger     ports.Ledger
	catalog    *domain.Catalog
	books      *engine.BookManager
	transactor ports.DBTransactor
	publisher  ports.EventPublisher
	audit      ports.AuditService
	currency   string
	log        zerolog.Logger
}

// NewTradingService creates a new TradingServiceImpl.
func NewTradingService(
	orderRepo ports.OrderRepository,
	tradeRepo ports.TradeRepository,
	ledger ports.Ledger,
	catalog *domain.Catalog,
	books *engine.BookManager,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	audit ports.AuditService,
	currency string,
	log zerolog.Logger,
) *TradingServiceImpl {
	return &TradingServiceImpl{
		orderRepo:  orderRepo,
		tradeRepo:  tradeRepo,
		ledger:     ledger,
		catalog:    catalog,
		books:      books,
		transactor: transactor,
		publisher:  publisher,
		audit:      audit,
		currency:   currency,
		log:        log,
	}
}

// fillPlan is one planned match against a resting order. Plans are
// computed by a read-only walk of the book and applied to the in-memory
// side only after the settlement transaction commits.
type fillPlan struct {
	resting *domain.Order
	qty     decimal.Decimal
	price   decimal.Decimal // resting order's limit price
}

// RecoverBooks rebuilds the in-memory books from persisted open orders.
// Must run before the server accepts traffic. Orders and trades draw
// from the same per-book counter, so the seed must clear the highest
// sequence either table holds or new arrivals would collide with
// pre-restart trades.
func (s *TradingServiceImpl) RecoverBooks(ctx context.Context) error {
	for _, code := range s.catalog.Codes() {
		book := s.books.GetOrCreate(code)

		maxSeq, err := s.orderRepo.MaxSeq(ctx, code)
		if err != nil {
			return fmt.Errorf("max order seq for %s: %w", code, err)
		}
		tradeSeq, err := s.tradeRepo.MaxSeq(ctx, code)
		if err != nil {
			return fmt.Errorf("max trade seq for %s: %w", code, err)
		}
		if tradeSeq > maxSeq {
			maxSeq = tradeSeq
		}
		book.SeedSeq(maxSeq)

		open, err := s.orderRepo.ListOpen(ctx, code)
		if err != nil {
			return fmt.Errorf("list open orders for %s: %w", code, err)
		}

		book.Lock()
		for i := range open {
			book.Insert(&open[i])
		}
		book.Unlock()

		s.log.Info().
			Str("credit_type", code).
			Int("open_orders", len(open)).
			Int64("seq", maxSeq).
			Msg("order book recovered")
	}
	return nil
}

// PlaceOrder validates, holds, matches, and settles a limit order. The
// taker's full required balance is held up front; fills consume the hold
// leg by leg and any unfilled remainder stays reserved while the order
// rests. Trades execute at the resting order's limit price.
func (s *TradingServiceImpl) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (*ports.PlaceOrderResult, error) {
	if _, ok := s.catalog.Lookup(req.CreditType); !ok {
		return nil, apperror.ErrUnknownCreditType(req.CreditType)
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return nil, apperror.ErrInvalidOrder(fmt.Sprintf("unknown side: %s", req.Side))
	}
	if !req.Quantity.IsPositive() {
		return nil, apperror.ErrInvalidQuantity()
	}
	if !req.Price.IsPositive() {
		return nil, apperror.ErrInvalidPrice()
	}

	order := &domain.Order{
		ID:         uuid.New(),
		AccountID:  req.AccountID,
		CreditType: req.CreditType,
		Side:       req.Side,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Remaining:  req.Quantity,
		Status:     domain.OrderStatusOpen,
		CreatedAt:  time.Now().UTC(),
	}

	book := s.books.GetOrCreate(req.CreditType)
	placed, trades, events, err := s.matchAndSettle(ctx, book, order)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", placed.ID.String()).
		Str("credit_type", placed.CreditType).
		Str("side", string(placed.Side)).
		Str("price", placed.Price.String()).
		Str("quantity", placed.Quantity.String()).
		Int("trades", len(trades)).
		Str("status", string(placed.Status)).
		Msg("order placed")

	// Outside the lock: subscribers are free to read the book or place
	// orders of their own.
	for _, event := range events {
		s.publish(ctx, event)
	}

	s.audit.Log(ctx, &domain.AuditLog{
		Action:       domain.AuditActionPlaceOrder,
		AccountID:    &placed.AccountID,
		ResourceType: "order",
		ResourceID:   placed.ID.String(),
		Details: fmt.Sprintf(`{"side":%q,"credit_type":%q,"price":%q,"quantity":%q,"trades":%d}`,
			placed.Side, placed.CreditType, placed.Price, placed.Quantity, len(trades)),
	})

	return &ports.PlaceOrderResult{Order: placed, Trades: trades}, nil
}

// matchAndSettle is the placement's critical section. Under the book
// lock it plans fills, persists the hold, the order, and every trade leg
// in one transaction, then applies the in-memory mutations after commit.
// It returns a detached copy of the taker plus the events to emit once
// the lock is released; event payloads snapshot order state here because
// a resting taker may be filled by another pass immediately after
// unlock.
func (s *TradingServiceImpl) matchAndSettle(ctx context.Context, book *engine.Book, order *domain.Order) (*domain.Order, []*domain.Trade, []domain.Event, error) {
	book.Lock()
	defer book.Unlock()

	order.Seq = book.NextSeq()
	plans := s.planFills(book, order)

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	// Hold the full required amount before anything else. Rejection here
	// leaves no trace: nothing was persisted and the book was not touched.
	if err := s.ledger.Hold(ctx, tx, order.AccountID, order.HoldAsset(s.currency), order.RequiredHold()); err != nil {
		return nil, nil, nil, err
	}
	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, nil, nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	trades := make([]*domain.Trade, 0, len(plans))
	for _, plan := range plans {
		trade, err := s.settleFill(ctx, tx, book, order, plan)
		if err != nil {
			return nil, nil, nil, err
		}
		trades = append(trades, trade)
		order.Remaining = order.Remaining.Sub(plan.qty)
	}
	order.Status = statusForFill(order)
	if len(trades) > 0 {
		if err := s.orderRepo.UpdateFill(ctx, tx, order); err != nil {
			return nil, nil, nil, apperror.InternalError(fmt.Errorf("update taker order: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, nil, apperror.InternalError(fmt.Errorf("commit placement: %w", err))
	}

	// Commit succeeded: now apply the planned mutations to the book.
	for _, plan := range plans {
		plan.resting.Remaining = plan.resting.Remaining.Sub(plan.qty)
		plan.resting.Status = statusForFill(plan.resting)
		if plan.resting.Remaining.IsZero() {
			book.Remove(plan.resting.ID)
		}
	}
	if !order.Remaining.IsZero() {
		book.Insert(order)
	}

	placed := *order
	return &placed, trades, placementEvents(&placed, plans, trades), nil
}

// planFills walks the opposite side in priority order and plans matches
// until the taker is exhausted or prices stop crossing. The walk never
// mutates the book.
func (s *TradingServiceImpl) planFills(book *engine.Book, taker *domain.Order) []fillPlan {
	var plans []fillPlan
	remaining := taker.Quantity

	book.WalkOpposite(taker.Side, func(e engine.BookEntry) bool {
		if !crosses(taker, e.Price) {
			return false
		}
		qty := decimal.Min(remaining, e.Order.Remaining)
		plans = append(plans, fillPlan{resting: e.Order, qty: qty, price: e.Price})
		remaining = remaining.Sub(qty)
		return remaining.IsPositive()
	})
	return plans
}

// crosses reports whether the taker's limit reaches the resting price.
func crosses(taker *domain.Order, restingPrice decimal.Decimal) bool {
	if taker.Side == domain.OrderSideBuy {
		return taker.Price.GreaterThanOrEqual(restingPrice)
	}
	return taker.Price.LessThanOrEqual(restingPrice)
}

// settleFill persists one trade and its four ledger legs. For each party
// the held amount for the filled quantity is released at their limit
// price, then the actual settlement amount is applied. A buyer whose limit
// exceeds the execution price gets the difference back automatically.
func (s *TradingServiceImpl) settleFill(ctx context.Context, tx pgx.Tx, book *engine.Book, taker *domain.Order, plan fillPlan) (*domain.Trade, error) {
	buy, sell := taker, plan.resting
	if taker.Side == domain.OrderSideSell {
		buy, sell = plan.resting, taker
	}

	trade := &domain.Trade{
		ID:          uuid.New(),
		CreditType:  taker.CreditType,
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		BuyerID:     buy.AccountID,
		SellerID:    sell.AccountID,
		Quantity:    plan.qty,
		Price:       plan.price,
		Seq:         book.NextSeq(),
		ExecutedAt:  time.Now().UTC(),
	}
	notional := trade.Notional()
	ref := trade.ID.String()

	// Seller leg: release the credit hold, debit credits, credit currency.
	if err := s.ledger.Release(ctx, tx, sell.AccountID, trade.CreditType, trade.Quantity); err != nil {
		return nil, apperror.ErrSettlementFailed(fmt.Errorf("release seller credits: %w", err))
	}
	if _, err := s.ledger.ApplyDelta(ctx, tx, sell.AccountID, trade.CreditType, trade.Quantity.Neg(), domain.LedgerReasonTradeDebit, ref); err != nil {
		return nil, apperror.ErrSettlementFailed(fmt.Errorf("debit seller credits: %w", err))
	}
	if _, err := s.ledger.ApplyDelta(ctx, tx, sell.AccountID, s.currency, notional, domain.LedgerReasonCurrencyCredit, ref); err != nil {
		return nil, apperror.ErrSettlementFailed(fmt.Errorf("credit seller currency: %w", err))
	}

	// Buyer leg: release the currency hold at the buyer's limit price,
	// debit the execution notional, credit credits.
	held := trade.Quantity.Mul(buy.Price)
	if err := s.ledger.Release(ctx, tx, buy.AccountID, s.currency, held); err != nil {
		return nil, apperror.ErrSettlementFailed(fmt.Errorf("release buyer currency: %w", err))
	}
	if _, err := s.ledger.ApplyDelta(ctx, tx, buy.AccountID, s.currency, notional.Neg(), domain.LedgerReasonCurrencyDebit, ref); err != nil {
		return nil, apperror.ErrSettlementFailed(fmt.Errorf("debit buyer currency: %w", err))
	}
	if _, err := s.ledger.ApplyDelta(ctx, tx, buy.AccountID, trade.CreditType, trade.Quantity, domain.LedgerReasonTradeCredit, ref); err != nil {
		return nil, apperror.ErrSettlementFailed(fmt.Errorf("credit buyer credits: %w", err))
	}

	if err := s.tradeRepo.Create(ctx, tx, trade); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create trade: %w", err))
	}

	// Persist the resting order's post-fill state. The in-memory order is
	// only mutated after commit, so work on a copy here.
	updated := *plan.resting
	updated.Remaining = updated.Remaining.Sub(plan.qty)
	updated.Status = statusForFill(&updated)
	if err := s.orderRepo.UpdateFill(ctx, tx, &updated); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update resting order: %w", err))
	}

	return trade, nil
}

// statusForFill derives the post-fill status from remaining quantity.
func statusForFill(o *domain.Order) domain.OrderStatus {
	switch {
	case o.Remaining.IsZero():
		return domain.OrderStatusFilled
	case o.Remaining.LessThan(o.Quantity):
		return domain.OrderStatusPartiallyFilled
	default:
		return domain.OrderStatusOpen
	}
}

// placementEvents builds the post-commit events for a placement: one
// per trade, one per order whose status moved. Payloads copy order state
// by value so they stay stable after the book lock is released.
func placementEvents(taker *domain.Order, plans []fillPlan, trades []*domain.Trade) []domain.Event {
	events := make([]domain.Event, 0, len(trades)+len(plans)+1)
	for _, trade := range trades {
		events = append(events, domain.NewEvent(domain.EventTradeExecuted, domain.TradeExecutedEvent{Trade: *trade}))
	}
	for _, plan := range plans {
		events = append(events, domain.NewEvent(domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
			OrderID:    plan.resting.ID,
			AccountID:  plan.resting.AccountID,
			CreditType: plan.resting.CreditType,
			Status:     plan.resting.Status,
			Remaining:  plan.resting.Remaining,
		}))
	}
	if len(trades) > 0 {
		events = append(events, domain.NewEvent(domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
			OrderID:    taker.ID,
			AccountID:  taker.AccountID,
			CreditType: taker.CreditType,
			Status:     taker.Status,
			Remaining:  taker.Remaining,
		}))
	}
	return events
}

func (s *TradingServiceImpl) publish(ctx context.Context, event domain.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish event")
	}
}

// CancelOrder removes a resting order and releases its remaining hold.
// Only the owner may cancel; filled and cancelled orders are not
// cancellable. Cancelling a partially filled order keeps its executed
// fills.
func (s *TradingServiceImpl) CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*domain.Order, error) {
	// First read resolves the credit type so the right book can be locked.
	probe, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if probe == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if probe.AccountID != requesterID {
		return nil, apperror.ErrNotOwner()
	}

	book := s.books.GetOrCreate(probe.CreditType)
	order, err := s.cancelAndRelease(ctx, book, orderID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("credit_type", order.CreditType).
		Str("remaining", order.Remaining.String()).
		Msg("order cancelled")

	s.publish(ctx, domain.NewEvent(domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:    order.ID,
		AccountID:  order.AccountID,
		CreditType: order.CreditType,
		Status:     order.Status,
		Remaining:  order.Remaining,
	}))

	s.audit.Log(ctx, &domain.AuditLog{
		Action:       domain.AuditActionCancelOrder,
		AccountID:    &order.AccountID,
		ResourceType: "order",
		ResourceID:   order.ID.String(),
	})

	return order, nil
}

// cancelAndRelease is the cancellation's critical section: re-read
// under the book lock, release the hold and flip the status in one
// transaction, then drop the order from the book. The returned order is
// the repository's copy and safe to use after unlock.
func (s *TradingServiceImpl) cancelAndRelease(ctx context.Context, book *engine.Book, orderID uuid.UUID) (*domain.Order, error) {
	book.Lock()
	defer book.Unlock()

	// Re-read under the book lock: a concurrent matching pass may have
	// filled the order between the probe and the lock.
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if order.IsTerminal() {
		return nil, apperror.ErrNotCancellable()
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := s.ledger.Release(ctx, tx, order.AccountID, order.HoldAsset(s.currency), order.RequiredHold()); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	if err := s.orderRepo.Cancel(ctx, tx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("cancel order: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit cancel: %w", err))
	}

	book.Remove(order.ID)
	return order, nil
}

// GetOrder returns an order by ID.
func (s *TradingServiceImpl) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

// BookSnapshot returns aggregated depth for one credit type's book.
func (s *TradingServiceImpl) BookSnapshot(creditType string, depth int) (*ports.BookSnapshot, error) {
	if _, ok := s.catalog.Lookup(creditType); !ok {
		return nil, apperror.ErrUnknownCreditType(creditType)
	}
	if depth <= 0 {
		depth = 10
	}

	book := s.books.GetOrCreate(creditType)
	book.Lock()
	defer book.Unlock()

	snap := &ports.BookSnapshot{
		CreditType: creditType,
		Bids:       toLevels(book.TopBids(depth)),
		Asks:       toLevels(book.TopAsks(depth)),
	}
	if best, ok := book.BestBid(); ok {
		price := best.Price
		snap.BestBid = &price
	}
	if best, ok := book.BestAsk(); ok {
		price := best.Price
		snap.BestAsk = &price
	}
	return snap, nil
}

func toLevels(levels []engine.PriceLevel) []ports.BookLevel {
	out := make([]ports.BookLevel, len(levels))
	for i, l := range levels {
		out[i] = ports.BookLevel{
			Price:      l.Price,
			Quantity:   l.TotalQuantity,
			OrderCount: l.OrderCount,
		}
	}
	return out
}
