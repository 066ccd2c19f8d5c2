package commands

import (
	"context"
	"strconv"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/config"
	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/trading"
)

type TraderCmd struct {
	ctx context.Context

	RootPathFlag
}

var traderCmd TraderCmd

func (cmd *TraderCmd) Execute(args []string) error {
	cfg, err := config.Read(cmd.rootPath())
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if err := applyTraderArgs(&cfg.Trader, args); err != nil {
			return err
		}
	}

	log := logging.NewLoggerFromConfig(cfg.Logging)
	defer log.AtExit()
	log.Info("starting trader",
		logging.String("version", CLIVersion),
		logging.String("version-hash", CLIVersionHash),
		logging.Uint64("client", cfg.Trader.ClientID),
		logging.String("algo", cfg.Trader.Algo))

	metrics.Start(cfg.Metrics)

	tr, err := trading.New(log, cfg.Trader)
	if err != nil {
		return err
	}

	if err := tr.Run(cmd.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyTraderArgs overrides the configured client identity, algorithm and
// per ticker parameters from the command line:
//
//	trader <clientId> <algo> [<clip> <threshold> <maxOrderSize> <maxPosition> <maxLoss>]...
//
// with one group of five values per traded ticker.
func applyTraderArgs(cfg *trading.Config, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: trader <clientId> <algo> [<clip> <threshold> <maxOrderSize> <maxPosition> <maxLoss>]...")
	}

	clientID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid client id `%s`", args[0])
	}
	cfg.ClientID = clientID
	cfg.Algo = args[1]

	rest := args[2:]
	if len(rest) == 0 {
		return nil
	}
	if len(rest)%5 != 0 {
		return errors.Errorf("ticker parameters come in groups of five, got %d values", len(rest))
	}

	tickers := make([]trading.TickerConfig, 0, len(rest)/5)
	for i := 0; i < len(rest); i += 5 {
		var tc trading.TickerConfig
		if tc.Clip, err = strconv.ParseUint(rest[i], 10, 64); err != nil {
			return errors.Wrapf(err, "invalid clip `%s`", rest[i])
		}
		if tc.Threshold, err = num.DecimalFromString(rest[i+1]); err != nil {
			return errors.Wrapf(err, "invalid threshold `%s`", rest[i+1])
		}
		if tc.MaxOrderSize, err = strconv.ParseUint(rest[i+2], 10, 64); err != nil {
			return errors.Wrapf(err, "invalid max order size `%s`", rest[i+2])
		}
		if tc.MaxPosition, err = strconv.ParseInt(rest[i+3], 10, 64); err != nil {
			return errors.Wrapf(err, "invalid max position `%s`", rest[i+3])
		}
		if tc.MaxLoss, err = num.DecimalFromString(rest[i+4]); err != nil {
			return errors.Wrapf(err, "invalid max loss `%s`", rest[i+4])
		}
		tickers = append(tickers, tc)
	}
	cfg.Tickers = tickers
	return nil
}

func Trader(ctx context.Context, parser *flags.Parser) error {
	traderCmd = TraderCmd{ctx: ctx}

	short := "Run a trading client"
	long := "Run the market data consumer, trade engine and order gateway for one client"

	_, err := parser.AddCommand("trader", short, long, &traderCmd)
	return err
}
