package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDollarsToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		want    int64
		wantErr bool
	}{
		{"zero", 0.0, 0, false},
		{"whole dollars", 10000.0, 1000000, false},
		{"aapl seed price", 178.50, 17850, false},
		{"small amount", 0.01, 1, false},
		{"negative value", -50.25, -5025, false},
		{"three decimal places", 1.234, 0, true},
		{"many decimal places", 0.001, 0, true},
		{"1.10 precision", 1.10, 110, false},
		{"99.99", 99.99, 9999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DollarsToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("DollarsToCents(%v) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("DollarsToCents(%v) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("DollarsToCents(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestDollarsToCents_OutOfRange(t *testing.T) {
	for _, f := range []float64{1e17, -1e17, 92233720368547760, math.MaxFloat64, math.Inf(1), math.Inf(-1), math.NaN()} {
		if _, err := DollarsToCents(f); !errors.Is(err, ErrAmountOutOfRange) {
			t.Errorf("DollarsToCents(%v) error = %v, want ErrAmountOutOfRange", f, err)
		}
	}
}

func TestCheckedAdd(t *testing.T) {
	tests := []struct {
		a, b int64
		want int64
		ok   bool
	}{
		{100, 250, 350, true},
		{100, -250, -150, true},
		{math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{math.MaxInt64, 1, 0, false},
		{math.MaxInt64 / 2, math.MaxInt64, 0, false},
		{math.MinInt64, -1, 0, false},
		{math.MinInt64, math.MaxInt64, -1, true},
	}
	for _, tt := range tests {
		got, ok := CheckedAdd(tt.a, tt.b)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CheckedAdd(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCheckedMul(t *testing.T) {
	tests := []struct {
		a, b int64
		want int64
		ok   bool
	}{
		{17850, 10, 178500, true},
		{0, math.MaxInt64, 0, true},
		{17850, 0, 0, true},
		{1, math.MaxInt64, math.MaxInt64, true},
		{17850, 600_000_000_000_000, 0, false},
		{2, math.MaxInt64/2 + 1, 0, false},
		{-1, 5, 0, false},
	}
	for _, tt := range tests {
		got, ok := CheckedMul(tt.a, tt.b)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CheckedMul(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCentsToDollars(t *testing.T) {
	if got := CentsToDollars(821500); math.Abs(got-8215.00) > 1e-9 {
		t.Errorf("CentsToDollars(821500) = %v, want 8215.00", got)
	}
}

func TestDecimalCentsToDollars(t *testing.T) {
	// 1/3 of a dollar in cents, rounded to the nearest cent.
	d := decimal.NewFromInt(100).Div(decimal.NewFromInt(3))
	if got := DecimalCentsToDollars(d); got != 0.33 {
		t.Errorf("DecimalCentsToDollars(33.33..) = %v, want 0.33", got)
	}
}

func TestRoundCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"17850", 17850},
		{"17850.5", 17851},
		{"17850.49", 17850},
	}
	for _, tt := range tests {
		if got := RoundCents(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("RoundCents(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(decimal.NewFromInt(25), decimal.NewFromInt(200)); got != 12.5 {
		t.Errorf("Percent(25, 200) = %v, want 12.5", got)
	}
	if got := Percent(decimal.NewFromInt(25), decimal.Zero); got != 0 {
		t.Errorf("Percent(25, 0) = %v, want 0", got)
	}
}
