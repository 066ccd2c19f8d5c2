// Package risk gates outgoing orders on per-ticker size, position and loss
// limits before they ever reach the gateway.
package risk

import (
	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/positions"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "risk"

// Cfg is the pre-trade risk limit set for one ticker. MaxLoss is a floor on
// total PnL, so it is normally negative.
type Cfg struct {
	MaxOrderSize types.Qty
	MaxPosition  int64
	MaxLoss      num.Decimal
}

// CheckResult is the outcome of one pre-trade risk check.
type CheckResult uint8

const (
	CheckInvalid CheckResult = iota
	CheckAllowed
	CheckOrderTooLarge
	CheckPositionTooLarge
	CheckLossTooLarge
)

func (r CheckResult) String() string {
	switch r {
	case CheckAllowed:
		return "ALLOWED"
	case CheckOrderTooLarge:
		return "ORDER_TOO_LARGE"
	case CheckPositionTooLarge:
		return "POSITION_TOO_LARGE"
	case CheckLossTooLarge:
		return "LOSS_TOO_LARGE"
	default:
		return "INVALID"
	}
}

// Manager evaluates every order intent against its ticker's limits and the
// live position state.
type Manager struct {
	log       *logging.Logger
	positions *positions.Keeper
	cfgs      []Cfg
}

// NewManager wires the risk limits to the position keeper they read from.
func NewManager(log *logging.Logger, keeper *positions.Keeper, cfgs []Cfg) *Manager {
	return &Manager{
		log:       log.Named(namedLogger),
		positions: keeper,
		cfgs:      cfgs,
	}
}

// Check runs the pre-trade checks for one order intent.
func (m *Manager) Check(tickerID types.TickerID, side types.Side, qty types.Qty) CheckResult {
	if uint64(tickerID) >= uint64(len(m.cfgs)) {
		m.log.Panic("risk check for unknown ticker",
			logging.Uint64("ticker", uint64(tickerID)))
	}
	cfg := m.cfgs[tickerID]
	info := m.positions.Info(tickerID)

	if qty > cfg.MaxOrderSize {
		return CheckOrderTooLarge
	}
	if projected := info.Position + side.Value()*int64(qty); abs(projected) > cfg.MaxPosition {
		return CheckPositionTooLarge
	}
	if info.TotalPnL.LessThan(cfg.MaxLoss) {
		return CheckLossTooLarge
	}
	return CheckAllowed
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
