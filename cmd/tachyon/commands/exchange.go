package commands

import (
	"context"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/config"
	"github.com/tachyontrading/tachyon/exchange"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
)

type ExchangeCmd struct {
	ctx context.Context

	RootPathFlag
}

var exchangeCmd ExchangeCmd

func (cmd *ExchangeCmd) Execute(_ []string) error {
	cfg, err := config.Read(cmd.rootPath())
	if err != nil {
		return err
	}

	log := logging.NewLoggerFromConfig(cfg.Logging)
	defer log.AtExit()
	log.Info("starting exchange",
		logging.String("version", CLIVersion),
		logging.String("version-hash", CLIVersionHash))

	metrics.Start(cfg.Metrics)

	watcher, err := config.NewWatcher(cmd.ctx, log, cmd.rootPath())
	if err != nil {
		return err
	}

	ex, err := exchange.New(log, cfg.Exchange)
	if err != nil {
		return err
	}
	watcher.OnConfigUpdate(func(c config.Config) {
		ex.ReloadConf(c.Exchange)
	})

	if err := ex.Run(cmd.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func Exchange(ctx context.Context, parser *flags.Parser) error {
	exchangeCmd = ExchangeCmd{ctx: ctx}

	short := "Run the exchange"
	long := "Run the matching engine, market data publisher, snapshot synthesizer and order server"

	_, err := parser.AddCommand("exchange", short, long, &exchangeCmd)
	return err
}
