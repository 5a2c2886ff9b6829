package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var symbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSymbol reports whether s is a normalized ticker symbol.
func ValidSymbol(s string) bool {
	return symbolRegex.MatchString(s)
}

// Instrument is a tradable stock in the simulated market.
type Instrument struct {
	Symbol        string
	Name          string
	Sector        string
	MarketCap     int64 // whole dollars
	CurrentPrice  int64 // cents
	PreviousClose int64 // cents
	DayHigh       int64
	DayLow        int64
	Volume        int64
	UpdatedAt     time.Time
}

// Change returns the move from the previous close in cents and as a
// percentage rounded to two decimals. Both are zero without a previous close.
func (i *Instrument) Change() (int64, float64) {
	if i.PreviousClose <= 0 {
		return 0, 0
	}
	change := i.CurrentPrice - i.PreviousClose
	return change, Percent(decimal.NewFromInt(change), decimal.NewFromInt(i.PreviousClose))
}

// ApplyPrice records a new trade price, widening the day range and adding
// to volume.
func (i *Instrument) ApplyPrice(price, volume int64, at time.Time) {
	i.CurrentPrice = price
	if i.DayHigh == 0 || price > i.DayHigh {
		i.DayHigh = price
	}
	if i.DayLow == 0 || price < i.DayLow {
		i.DayLow = price
	}
	i.Volume += volume
	i.UpdatedAt = at
}
