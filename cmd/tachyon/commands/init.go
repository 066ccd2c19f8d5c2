package commands

import (
	"context"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/config"
	"github.com/tachyontrading/tachyon/logging"
)

type InitCmd struct {
	RootPathFlag

	Force bool `short:"f" long:"force" description:"Overwrite an existing configuration at the specified path"`
}

var initCmd InitCmd

func (cmd *InitCmd) Execute(_ []string) error {
	logger := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer logger.AtExit()

	root := cmd.rootPath()
	cfgPath := config.FilePath(root)

	if _, err := os.Stat(cfgPath); err == nil && !cmd.Force {
		return errors.Errorf("configuration already exists at `%s`, remove it first or re-run using -f", cfgPath)
	}

	if err := config.Write(root, config.NewDefaultConfig()); err != nil {
		return err
	}

	logger.Info("configuration generated successfully",
		logging.String("path", cfgPath))
	return nil
}

func Init(ctx context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{}

	short := "Initializes a tachyon root"
	long := "Generate the default configuration required to run the exchange or a trader"

	_, err := parser.AddCommand("init", short, long, &initCmd)
	return err
}
