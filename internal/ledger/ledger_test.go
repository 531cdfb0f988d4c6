package ledger

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msg ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s %v", want, got, msg)
}

func buy(asset string, size float64) domain.Order {
	return domain.Order{Asset: asset, Size: size}
}

func sell(asset string, size float64) domain.Order {
	return domain.Order{Asset: asset, Size: -size}
}

func TestApply_BuyDeductsExactCost(t *testing.T) {
	l := New(d("1000"), d("0.001"))

	out := l.Apply(buy("GOLD", 5), Fill{Price: 100, Bar: 0, Time: 1000})
	require.True(t, out.Accepted())
	assert.Nil(t, out.Trade)
	assertMoney(t, "5", out.Filled)

	// 1000 - 100*5*(1+0.001)
	assertMoney(t, "499.5", l.Cash())

	pos, ok := l.Position("GOLD")
	require.True(t, ok)
	assertMoney(t, "5", pos.Size)
	assertMoney(t, "100", pos.EntryPrice)
	assertMoney(t, "500.5", pos.CostBasis)
	assert.Equal(t, int64(1000), pos.EntryTime)
	assert.Equal(t, 0, pos.EntryBar)
}

func TestApply_BuyUsingAllCash(t *testing.T) {
	l := New(d("1000"), decimal.Zero)

	out := l.Apply(buy("GOLD", 10), Fill{Price: 100})
	require.True(t, out.Accepted())
	assert.True(t, l.Cash().IsZero())
}

func TestApply_WeightedEntryPrice(t *testing.T) {
	l := New(d("10000"), decimal.Zero)

	require.True(t, l.Apply(buy("GOLD", 10), Fill{Price: 100, Bar: 0, Time: 1}).Accepted())
	require.True(t, l.Apply(buy("GOLD", 10), Fill{Price: 110, Bar: 1, Time: 2}).Accepted())

	pos, ok := l.Position("GOLD")
	require.True(t, ok)
	assertMoney(t, "20", pos.Size)
	assertMoney(t, "105", pos.EntryPrice)
	assertMoney(t, "2100", pos.CostBasis)
	assert.Equal(t, int64(1), pos.EntryTime, "entry time stays at the opening fill")
	assertMoney(t, "7900", l.Cash())
}

func TestApply_InsufficientCashLeavesLedgerUntouched(t *testing.T) {
	l := New(d("1000"), d("0.01"))
	require.True(t, l.Apply(buy("GOLD", 5), Fill{Price: 100}).Accepted())

	cashBefore := l.Cash()
	posBefore, _ := l.Position("GOLD")

	out := l.Apply(buy("GOLD", 5), Fill{Price: 100})
	assert.Equal(t, RejectInsufficientCash, out.Rejection)
	assert.Equal(t, domain.CodeInsufficientCash, out.Rejection.Code())
	assert.Equal(t, domain.LevelWarn, out.Rejection.Level())
	assert.True(t, out.Filled.IsZero())

	posAfter, _ := l.Position("GOLD")
	assert.Equal(t, cashBefore.String(), l.Cash().String())
	assert.Equal(t, posBefore, posAfter)
	assert.Empty(t, l.Trades())

	out = l.Apply(buy("SILVER", 1000), Fill{Price: 1})
	assert.Equal(t, RejectInsufficientCash, out.Rejection)
	_, ok := l.Position("SILVER")
	assert.False(t, ok, "rejected buy must not open a position")
}

func TestApply_SellWithoutPosition(t *testing.T) {
	l := New(d("10000"), decimal.Zero)

	out := l.Apply(sell("GOLD", 1), Fill{Price: 100})
	assert.Equal(t, RejectNoPosition, out.Rejection)
	assert.Equal(t, domain.CodeNoPosition, out.Rejection.Code())
	assert.Equal(t, domain.LevelWarn, out.Rejection.Level())
	assertMoney(t, "10000", l.Cash())
	assert.Empty(t, l.Trades())
	assert.Empty(t, l.Holdings())
}

func TestApply_FullCloseEmitsOneTrade(t *testing.T) {
	l := New(d("10000"), decimal.Zero)
	require.True(t, l.Apply(buy("GOLD", 10), Fill{Price: 100, Bar: 0, Time: 1000}).Accepted())

	out := l.Apply(sell("GOLD", 10), Fill{Price: 120, Bar: 3, Time: 4000})
	require.True(t, out.Accepted())
	require.NotNil(t, out.Trade)
	assert.False(t, out.Clamped)
	assertMoney(t, "-10", out.Filled)

	trades := l.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "GOLD", tr.Asset)
	assert.Equal(t, int64(1000), tr.EntryTime)
	assert.Equal(t, int64(4000), tr.ExitTime)
	assertMoney(t, "100", tr.EntryPrice)
	assertMoney(t, "120", tr.ExitPrice)
	assertMoney(t, "10", tr.Size)
	assertMoney(t, "200", tr.Profit)
	assert.False(t, tr.Partial)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, tr, *out.Trade)

	_, ok := l.Position("GOLD")
	assert.False(t, ok)
	assertMoney(t, "10200", l.Cash())
}

func TestApply_PartialCloseEmitsPartialTrade(t *testing.T) {
	l := New(d("10000"), decimal.Zero)
	require.True(t, l.Apply(buy("GOLD", 10), Fill{Price: 100}).Accepted())

	out := l.Apply(sell("GOLD", 4), Fill{Price: 120, Bar: 1, Time: 2})
	require.True(t, out.Accepted())
	require.NotNil(t, out.Trade)
	assert.True(t, out.Trade.Partial)
	assertMoney(t, "4", out.Trade.Size)
	assertMoney(t, "80", out.Trade.Profit)

	pos, ok := l.Position("GOLD")
	require.True(t, ok)
	assertMoney(t, "6", pos.Size)
	assertMoney(t, "100", pos.EntryPrice)
	assertMoney(t, "600", pos.CostBasis)

	out = l.Apply(sell("GOLD", 6), Fill{Price: 90, Bar: 2, Time: 3})
	require.NotNil(t, out.Trade)
	assert.False(t, out.Trade.Partial)
	assertMoney(t, "-60", out.Trade.Profit)

	trades := l.Trades()
	require.Len(t, trades, 2)
	assert.NotEqual(t, trades[0].ID, trades[1].ID)
	assertMoney(t, "10020", l.Cash())
}

func TestApply_OversizedSellIsClamped(t *testing.T) {
	l := New(d("10000"), decimal.Zero)
	require.True(t, l.Apply(buy("GOLD", 10), Fill{Price: 100}).Accepted())

	out := l.Apply(sell("GOLD", 15), Fill{Price: 100})
	require.True(t, out.Accepted())
	assert.True(t, out.Clamped)
	assertMoney(t, "-10", out.Filled)
	assertMoney(t, "10", out.Trade.Size)
	assertMoney(t, "10000", l.Cash())

	_, ok := l.Position("GOLD")
	assert.False(t, ok)
}

func TestApply_SellOfReportedSizeClosesScaledInPosition(t *testing.T) {
	for p1 := 50.0; p1 <= 150; p1 += 7 {
		for p2 := 53.0; p2 <= 150; p2 += 11 {
			l := New(d("10000"), decimal.Zero)
			require.True(t, l.Apply(buy("GOLD", 1000/p1), Fill{Price: p1, Bar: 0}).Accepted())
			require.True(t, l.Apply(buy("GOLD", 1000/p2), Fill{Price: p2, Bar: 1}).Accepted())

			pos, ok := l.Position("GOLD")
			require.True(t, ok)

			out := l.Apply(sell("GOLD", pos.Size.InexactFloat64()), Fill{Price: 100, Bar: 2})
			require.True(t, out.Accepted())
			assert.False(t, out.Clamped, "prices %v/%v", p1, p2)
			assert.False(t, out.Trade.Partial, "prices %v/%v", p1, p2)
			assert.True(t, pos.Size.Equal(out.Trade.Size), "prices %v/%v", p1, p2)

			_, open := l.Position("GOLD")
			assert.False(t, open, "prices %v/%v: dust left %s", p1, p2, l.OpenSizes())
		}
	}
}

func TestApply_CommissionOnBothLegs(t *testing.T) {
	l := New(d("10000"), d("0.01"))
	require.True(t, l.Apply(buy("GOLD", 10), Fill{Price: 100}).Accepted())
	assertMoney(t, "8990", l.Cash())

	out := l.Apply(sell("GOLD", 10), Fill{Price: 100})
	require.NotNil(t, out.Trade)
	// proceeds 990, cost 1010
	assertMoney(t, "-20", out.Trade.Profit)
	assertMoney(t, "9980", l.Cash())
}

func TestApply_InvalidOrders(t *testing.T) {
	tests := []struct {
		name  string
		order domain.Order
		price float64
		want  Rejection
		level domain.Level
	}{
		{"zero size", buy("GOLD", 0), 100, RejectZeroSize, domain.LevelInfo},
		{"nan size", buy("GOLD", math.NaN()), 100, RejectInvalidSize, domain.LevelWarn},
		{"inf size", buy("GOLD", math.Inf(1)), 100, RejectInvalidSize, domain.LevelWarn},
		{"nan price", buy("GOLD", 1), math.NaN(), RejectInvalidPrice, domain.LevelWarn},
		{"zero price", buy("GOLD", 1), 0, RejectInvalidPrice, domain.LevelWarn},
		{"negative price", sell("GOLD", 1), -3, RejectInvalidPrice, domain.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(d("10000"), decimal.Zero)
			out := l.Apply(tt.order, Fill{Price: tt.price})
			assert.Equal(t, tt.want, out.Rejection)
			assert.Equal(t, tt.level, out.Rejection.Level())
			assert.NotEmpty(t, out.Rejection.Code())
			assertMoney(t, "10000", l.Cash())
			assert.Empty(t, l.Holdings())
		})
	}
}

func TestApply_UnknownAsset(t *testing.T) {
	l := New(d("10000"), decimal.Zero, WithAssets("GOLD", "SILVER"))

	out := l.Apply(buy("COPPER", 1), Fill{Price: 10})
	assert.Equal(t, RejectUnknownAsset, out.Rejection)
	assert.Equal(t, domain.CodeUnknownAsset, out.Rejection.Code())

	assert.True(t, l.Apply(buy("SILVER", 1), Fill{Price: 10}).Accepted())
}

func TestLedger_ViewsAreCopies(t *testing.T) {
	l := New(d("10000"), decimal.Zero)
	l.Apply(buy("SILVER", 2), Fill{Price: 10})
	l.Apply(buy("GOLD", 1.5), Fill{Price: 100})
	l.Apply(sell("GOLD", 0.5), Fill{Price: 100})

	assert.Equal(t, []string{"GOLD", "SILVER"}, l.Holdings())
	assert.Equal(t, map[string]float64{"GOLD": 1, "SILVER": 2}, l.OpenSizes())

	sizes := l.OpenSizes()
	sizes["GOLD"] = 99
	pos, _ := l.Position("GOLD")
	assertMoney(t, "1", pos.Size)

	trades := l.Trades()
	trades[0].Asset = "X"
	assert.Equal(t, "GOLD", l.Trades()[0].Asset)
}
