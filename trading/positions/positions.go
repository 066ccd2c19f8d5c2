// Package positions tracks per-ticker signed positions and their realized
// and unrealized PnL from fills and quote updates.
package positions

import (
	"fmt"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "positions"

// Info is the position state for one ticker. Open VWAP numerators hold
// Σ price·qty per side for the currently open quantity; dividing by |pos|
// yields the per-unit open VWAP.
type Info struct {
	Position int64
	Volume   types.Qty

	RealPnL   num.Decimal
	UnrealPnL num.Decimal
	TotalPnL  num.Decimal

	openVWAP [2]num.Decimal
	bbo      types.BBO
}

func (i *Info) String() string {
	return fmt.Sprintf("Position{pos:%d vol:%d real:%s unreal:%s total:%s}",
		i.Position, i.Volume, i.RealPnL.String(), i.UnrealPnL.String(), i.TotalPnL.String())
}

// Keeper owns the position state for every ticker. The trade engine
// goroutine is the sole caller.
type Keeper struct {
	log    *logging.Logger
	ticker []Info
}

// NewKeeper allocates position state for numTickers tickers.
func NewKeeper(log *logging.Logger, numTickers uint64) *Keeper {
	k := &Keeper{
		log:    log.Named(namedLogger),
		ticker: make([]Info, numTickers),
	}
	for i := range k.ticker {
		k.ticker[i].bbo = types.NewBBO()
	}
	return k
}

// Info returns the position state for one ticker.
func (k *Keeper) Info(tickerID types.TickerID) *Info {
	if uint64(tickerID) >= uint64(len(k.ticker)) {
		k.log.Panic("position lookup for unknown ticker",
			logging.Uint64("ticker", uint64(tickerID)))
	}
	return &k.ticker[tickerID]
}

// AddFill folds one FILLED response into the ticker's position. Adding to a
// position accumulates that side's open VWAP numerator; reducing realizes
// PnL against the opposite side's VWAP, and a flip through zero restarts the
// new side's numerator from the residual at the fill price.
func (k *Keeper) AddFill(resp types.ClientResponse) {
	info := k.Info(resp.TickerID)

	oldPosition := info.Position
	sideIdx := resp.Side.Index()
	oppIdx := resp.Side.Opposite().Index()
	sideValue := resp.Side.Value()

	exec := int64(resp.ExecQty)
	fillPx := num.DecimalFromInt64(int64(resp.Price))

	info.Position += exec * sideValue
	info.Volume += resp.ExecQty

	if oldPosition*sideValue >= 0 {
		// opening or adding: accumulate price*qty on the fill side
		info.openVWAP[sideIdx] = info.openVWAP[sideIdx].
			Add(fillPx.Mul(num.DecimalFromInt64(exec)))
	} else {
		// reducing against the opposite side's open VWAP
		oppVWAP := info.openVWAP[oppIdx].Div(num.DecimalFromInt64(abs(oldPosition)))
		info.openVWAP[oppIdx] = oppVWAP.Mul(num.DecimalFromInt64(abs(info.Position)))

		closed := exec
		if a := abs(oldPosition); a < closed {
			closed = a
		}
		info.RealPnL = info.RealPnL.Add(
			num.DecimalFromInt64(closed).
				Mul(oppVWAP.Sub(fillPx)).
				Mul(num.DecimalFromInt64(sideValue)))

		if info.Position*oldPosition < 0 {
			// flipped: the residual opens the fill side at the fill price
			info.openVWAP[sideIdx] = fillPx.Mul(num.DecimalFromInt64(abs(info.Position)))
			info.openVWAP[oppIdx] = num.DecimalZero()
		}
	}

	if info.Position == 0 {
		info.openVWAP[0] = num.DecimalZero()
		info.openVWAP[1] = num.DecimalZero()
		info.UnrealPnL = num.DecimalZero()
	} else {
		info.UnrealPnL = k.unrealized(info, fillPx)
	}
	info.TotalPnL = info.RealPnL.Add(info.UnrealPnL)

	if k.log.IsDebug() {
		k.log.Debug("fill applied",
			logging.Uint64("ticker", uint64(resp.TickerID)),
			logging.String("position", info.String()))
	}
}

// UpdateBBO remembers the quote and marks any open position to the mid.
// Calling it twice with the same quote leaves the state unchanged.
func (k *Keeper) UpdateBBO(tickerID types.TickerID, bbo types.BBO) {
	info := k.Info(tickerID)
	info.bbo = bbo
	if info.Position == 0 || !bbo.TwoSided() {
		return
	}
	mid := num.DecimalFromInt64(int64(bbo.BidPrice)).
		Add(num.DecimalFromInt64(int64(bbo.AskPrice))).
		Div(num.DecimalFromInt64(2))
	info.UnrealPnL = k.unrealized(info, mid)
	info.TotalPnL = info.RealPnL.Add(info.UnrealPnL)
}

// unrealized marks the open position to markPx against its open VWAP.
func (k *Keeper) unrealized(info *Info, markPx num.Decimal) num.Decimal {
	pos := num.DecimalFromInt64(abs(info.Position))
	if info.Position > 0 {
		vwap := info.openVWAP[types.SideBuy.Index()].Div(pos)
		return markPx.Sub(vwap).Mul(pos)
	}
	vwap := info.openVWAP[types.SideSell.Index()].Div(pos)
	return vwap.Sub(markPx).Mul(pos)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
