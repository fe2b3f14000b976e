package engine

import (
	"fmt"
	"testing"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Best entry selection must be invariant under insertion order: the best
// bid is always the highest price with the lowest sequence among equals,
// regardless of how the entries arrived.
func TestProperty_BestBidIndependentOfInsertionOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewBook("plastic-pet")

		n := rapid.IntRange(1, 30).Draw(t, "n")
		orders := make([]*domain.Order, 0, n)
		for i := 0; i < n; i++ {
			price := rapid.Int64Range(1, 200).Draw(t, fmt.Sprintf("price%d", i))
			orders = append(orders, &domain.Order{
				ID:        uuid.New(),
				Side:      domain.OrderSideBuy,
				Price:     decimal.NewFromInt(price),
				Quantity:  decimal.NewFromInt(1),
				Remaining: decimal.NewFromInt(1),
				Seq:       book.NextSeq(),
			})
		}

		// Insert in a shuffled order.
		perm := rapid.Permutation(orders).Draw(t, "perm")
		for _, o := range perm {
			book.Insert(o)
		}

		// Compute the expected winner by scanning.
		expected := orders[0]
		for _, o := range orders[1:] {
			if o.Price.GreaterThan(expected.Price) ||
				(o.Price.Equal(expected.Price) && o.Seq < expected.Seq) {
				expected = o
			}
		}

		best, ok := book.BestBid()
		if !ok {
			t.Fatalf("book empty after %d inserts", n)
		}
		if best.Order.ID != expected.ID {
			t.Fatalf("best bid %s (price=%s seq=%d), want %s (price=%s seq=%d)",
				best.Order.ID, best.Price, best.Seq,
				expected.ID, expected.Price, expected.Seq)
		}
	})
}

// Removing entries must leave the remaining priority order intact.
func TestProperty_RemovePreservesPriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewBook("plastic-pet")

		n := rapid.IntRange(2, 20).Draw(t, "n")
		orders := make([]*domain.Order, 0, n)
		for i := 0; i < n; i++ {
			price := rapid.Int64Range(1, 50).Draw(t, fmt.Sprintf("price%d", i))
			o := &domain.Order{
				ID:        uuid.New(),
				Side:      domain.OrderSideSell,
				Price:     decimal.NewFromInt(price),
				Quantity:  decimal.NewFromInt(1),
				Remaining: decimal.NewFromInt(1),
				Seq:       book.NextSeq(),
			}
			orders = append(orders, o)
			book.Insert(o)
		}

		removeIdx := rapid.IntRange(0, n-1).Draw(t, "removeIdx")
		book.Remove(orders[removeIdx].ID)

		if book.AskCount() != n-1 {
			t.Fatalf("ask count %d after removal, want %d", book.AskCount(), n-1)
		}

		// Walk the remaining asks: prices must be non-decreasing and the
		// removed entry must not appear.
		prev := decimal.Zero
		book.WalkOpposite(domain.OrderSideBuy, func(e BookEntry) bool {
			if e.Order.ID == orders[removeIdx].ID {
				t.Fatalf("removed order still on book")
			}
			if e.Price.LessThan(prev) {
				t.Fatalf("ask walk out of order: %s after %s", e.Price, prev)
			}
			prev = e.Price
			return true
		})
	})
}
