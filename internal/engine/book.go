package engine

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/minibroker/internal/domain"
)

// BookEntry is a pending limit order resting on the book.
type BookEntry struct {
	LimitPrice int64
	CreatedAt  time.Time
	OrderID    string
	AccountID  string
	Side       domain.OrderSide
	Quantity   int64
}

// PriceLevel represents an aggregated price level in the book.
type PriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// buyLess orders buy limits by price descending, then created_at ascending,
// then order_id ascending. Min() returns the buy that a falling price
// reaches first.
func buyLess(a, b BookEntry) bool {
	if a.LimitPrice != b.LimitPrice {
		return a.LimitPrice > b.LimitPrice
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// sellLess orders sell limits by price ascending, then created_at
// ascending, then order_id ascending. Min() returns the sell that a rising
// price reaches first.
func sellLess(a, b BookEntry) bool {
	if a.LimitPrice != b.LimitPrice {
		return a.LimitPrice < b.LimitPrice
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// PendingBook holds the pending limit orders for a single symbol using
// B-trees with a secondary index for O(log n) removal by order ID.
type PendingBook struct {
	symbol string
	mu     sync.Mutex
	buys   *btree.BTreeG[BookEntry]
	sells  *btree.BTreeG[BookEntry]
	index  map[string]BookEntry // order_id → entry
}

// NewPendingBook creates an empty book for the given symbol.
func NewPendingBook(symbol string) *PendingBook {
	const degree = 32
	return &PendingBook{
		symbol: symbol,
		buys:   btree.NewG[BookEntry](degree, buyLess),
		sells:  btree.NewG[BookEntry](degree, sellLess),
		index:  make(map[string]BookEntry),
	}
}

// EntryFor builds the book entry for a pending limit order.
func EntryFor(o *domain.Order) BookEntry {
	return BookEntry{
		LimitPrice: o.LimitPrice,
		CreatedAt:  o.CreatedAt,
		OrderID:    o.OrderID,
		AccountID:  o.AccountID,
		Side:       o.Side,
		Quantity:   o.Quantity,
	}
}

// Insert adds an entry on its side of the book.
func (b *PendingBook) Insert(entry BookEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertLocked(entry)
}

func (b *PendingBook) insertLocked(entry BookEntry) {
	if entry.Side == domain.OrderSideBuy {
		b.buys.ReplaceOrInsert(entry)
	} else {
		b.sells.ReplaceOrInsert(entry)
	}
	b.index[entry.OrderID] = entry
}

// Remove deletes an order from the book by order ID. It reports whether
// the order was on the book.
func (b *PendingBook) Remove(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[orderID]
	if !ok {
		return false
	}
	delete(b.index, orderID)
	b.buys.Delete(entry)
	b.sells.Delete(entry)
	return true
}

// TakeCrossing removes and returns every entry reachable at price: buys
// with limit >= price, highest limit first, followed by sells with
// limit <= price, lowest limit first.
func (b *PendingBook) TakeCrossing(price int64) []BookEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var crossed []BookEntry
	b.buys.Ascend(func(e BookEntry) bool {
		if e.LimitPrice < price {
			return false
		}
		crossed = append(crossed, e)
		return true
	})
	b.sells.Ascend(func(e BookEntry) bool {
		if e.LimitPrice > price {
			return false
		}
		crossed = append(crossed, e)
		return true
	})

	for _, e := range crossed {
		delete(b.index, e.OrderID)
		if e.Side == domain.OrderSideBuy {
			b.buys.Delete(e)
		} else {
			b.sells.Delete(e)
		}
	}
	return crossed
}

// TopBuys returns up to n aggregated buy levels, price descending.
func (b *PendingBook) TopBuys(n int) []PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return topLevels(b.buys, n)
}

// TopSells returns up to n aggregated sell levels, price ascending.
func (b *PendingBook) TopSells(n int) []PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return topLevels(b.sells, n)
}

// topLevels iterates the B-tree in order and aggregates entries into
// at most n price levels.
func topLevels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry BookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.LimitPrice {
			levels[len(levels)-1].TotalQuantity += entry.Quantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.LimitPrice,
			TotalQuantity: entry.Quantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// Len returns the number of orders on the book.
func (b *PendingBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.index)
}

// Books is a thread-safe map of symbol → PendingBook.
type Books struct {
	mu    sync.RWMutex
	books map[string]*PendingBook
}

// NewBooks creates an empty set of books.
func NewBooks() *Books {
	return &Books{
		books: make(map[string]*PendingBook),
	}
}

// GetOrCreate returns the book for the given symbol, creating
// one if it doesn't already exist.
func (bs *Books) GetOrCreate(symbol string) *PendingBook {
	bs.mu.RLock()
	book, ok := bs.books[symbol]
	bs.mu.RUnlock()
	if ok {
		return book
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bs.books[symbol]; ok {
		return book
	}
	book = NewPendingBook(symbol)
	bs.books[symbol] = book
	return book
}

// Get returns the book for symbol, or nil.
func (bs *Books) Get(symbol string) *PendingBook {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.books[symbol]
}
