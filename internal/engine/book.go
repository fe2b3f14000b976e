package engine

import (
	"sync"
	"sync/atomic"

	"credit-exchange/internal/core/domain"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookEntry represents a single order resting on the book.
type BookEntry struct {
	Price decimal.Decimal
	Seq   int64
	Order *domain.Order
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         decimal.Decimal
	TotalQuantity decimal.Decimal
	OrderCount    int
}

// bidLess defines ordering for the buy side: price descending, then
// arrival sequence ascending. Min() returns the best bid (highest price,
// earliest arrival). Sequence numbers are unique per book, so the
// ordering is total.
func bidLess(a, b BookEntry) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.GreaterThan(b.Price)
	}
	return a.Seq < b.Seq
}

// askLess defines ordering for the sell side: price ascending, then
// arrival sequence ascending. Min() returns the best ask.
func askLess(a, b BookEntry) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	return a.Seq < b.Seq
}

// Book maintains the buy and sell sides for a single credit type using
// B-trees with a secondary index for O(log n) removal by order ID. It
// also owns the credit type's arrival sequence counter: every order and
// trade for this book draws from the same strictly increasing sequence.
//
// The embedded mutex is the per-credit-type serialization point required
// by the matching loop. Callers hold it across an entire matching pass.
type Book struct {
	creditType string
	mu         sync.Mutex
	seq        atomic.Int64
	bids       *btree.BTreeG[BookEntry]
	asks       *btree.BTreeG[BookEntry]
	index      map[uuid.UUID]BookEntry // order id → entry
}

// NewBook creates an order book for the given credit type.
func NewBook(creditType string) *Book {
	const degree = 32
	return &Book{
		creditType: creditType,
		bids:       btree.NewG[BookEntry](degree, bidLess),
		asks:       btree.NewG[BookEntry](degree, askLess),
		index:      make(map[uuid.UUID]BookEntry),
	}
}

// Lock acquires the per-credit-type write lock.
func (b *Book) Lock() { b.mu.Lock() }

// Unlock releases the per-credit-type write lock.
func (b *Book) Unlock() { b.mu.Unlock() }

// NextSeq returns the next arrival sequence number. Strictly increasing,
// never reused.
func (b *Book) NextSeq() int64 {
	return b.seq.Add(1)
}

// SeedSeq advances the sequence counter to at least seq. Used at startup
// when rebuilding the book from persisted open orders.
func (b *Book) SeedSeq(seq int64) {
	for {
		cur := b.seq.Load()
		if cur >= seq || b.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// Insert adds an order to its side of the book.
func (b *Book) Insert(order *domain.Order) {
	entry := BookEntry{Price: order.Price, Seq: order.Seq, Order: order}
	if order.Side == domain.OrderSideBuy {
		b.bids.ReplaceOrInsert(entry)
	} else {
		b.asks.ReplaceOrInsert(entry)
	}
	b.index[order.ID] = entry
}

// Remove deletes an order from the book by ID using the secondary index.
func (b *Book) Remove(orderID uuid.UUID) {
	entry, ok := b.index[orderID]
	if !ok {
		return
	}
	delete(b.index, orderID)
	if entry.Order.Side == domain.OrderSideBuy {
		b.bids.Delete(entry)
	} else {
		b.asks.Delete(entry)
	}
}

// Contains reports whether the order currently rests on the book.
func (b *Book) Contains(orderID uuid.UUID) bool {
	_, ok := b.index[orderID]
	return ok
}

// BestBid returns the highest-priority buy entry.
func (b *Book) BestBid() (BookEntry, bool) {
	return b.bids.Min()
}

// BestAsk returns the highest-priority sell entry.
func (b *Book) BestAsk() (BookEntry, bool) {
	return b.asks.Min()
}

// BestOpposite returns the best resting entry on the side opposite to the
// given incoming side.
func (b *Book) BestOpposite(side domain.OrderSide) (BookEntry, bool) {
	if side == domain.OrderSideBuy {
		return b.BestAsk()
	}
	return b.BestBid()
}

// WalkOpposite iterates the side opposite the given incoming side in
// priority order. The callback returns true to continue. Used to plan a
// matching pass without mutating the book.
func (b *Book) WalkOpposite(side domain.OrderSide, fn func(BookEntry) bool) {
	if side == domain.OrderSideBuy {
		b.asks.Ascend(fn)
	} else {
		b.bids.Ascend(fn)
	}
}

// TopBids returns up to n aggregated price levels from the buy side,
// price descending.
func (b *Book) TopBids(n int) []PriceLevel {
	return topLevels(b.bids, n)
}

// TopAsks returns up to n aggregated price levels from the sell side,
// price ascending.
func (b *Book) TopAsks(n int) []PriceLevel {
	return topLevels(b.asks, n)
}

// topLevels iterates the B-tree in order and aggregates entries into at
// most n price levels.
func topLevels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry BookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(entry.Price) {
			levels[len(levels)-1].TotalQuantity = levels[len(levels)-1].TotalQuantity.Add(entry.Order.Remaining)
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: entry.Order.Remaining,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// BidCount returns the number of individual buy orders on the book.
func (b *Book) BidCount() int {
	return b.bids.Len()
}

// AskCount returns the number of individual sell orders on the book.
func (b *Book) AskCount() int {
	return b.asks.Len()
}

// Crossed reports whether the best bid price meets or exceeds the best
// ask price. A settled book is never crossed.
func (b *Book) Crossed() bool {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	return hasBid && hasAsk && bid.Price.GreaterThanOrEqual(ask.Price)
}

// BookManager is a thread-safe map of credit type → Book.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*Book
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[string]*Book),
	}
}

// GetOrCreate returns the book for the given credit type, creating one if
// it doesn't already exist.
func (bm *BookManager) GetOrCreate(creditType string) *Book {
	bm.mu.RLock()
	book, ok := bm.books[creditType]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[creditType]; ok {
		return book
	}
	book = NewBook(creditType)
	bm.books[creditType] = book
	return book
}
