package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/jessevdk/go-flags"
)

var (
	// CLIVersionHash specifies the git commit used to build the application.
	CLIVersionHash = ""

	// CLIVersion specifies the version used to build the application.
	CLIVersion = "v0.1.0+dev"
)

// Empty is the top level option holder, every subcommand carries its own
// flags.
type Empty struct{}

// Subcommand is the signature of a sub command that can be registered.
type Subcommand func(context.Context, *flags.Parser) error

// Register registers one or more subcommands.
func Register(ctx context.Context, parser *flags.Parser, cmds ...Subcommand) error {
	for _, fn := range cmds {
		if err := fn(ctx, parser); err != nil {
			return err
		}
	}
	return nil
}

func Main(ctx context.Context) error {
	setCommitHash()

	parser := flags.NewParser(&Empty{}, flags.Default)

	if err := Register(ctx, parser,
		Init,
		Exchange,
		Trader,
		Version,
	); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return err
	}

	if _, err := parser.Parse(); err != nil {
		return err
	}
	return nil
}

func setCommitHash() {
	info, _ := debug.ReadBuildInfo()
	if info == nil {
		return
	}
	modified := false
	for _, v := range info.Settings {
		if v.Key == "vcs.revision" {
			CLIVersionHash = v.Value
		}
		if v.Key == "vcs.modified" && v.Value == "true" {
			modified = true
		}
	}
	if modified {
		CLIVersionHash += "-modified"
	}
}

// RootPathFlag is embedded by every subcommand that needs the configuration
// root directory.
type RootPathFlag struct {
	RootPath string `long:"root-path" description:"Path of the directory holding the configuration file"`
}

func (f *RootPathFlag) rootPath() string {
	if f.RootPath != "" {
		return f.RootPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tachyon"
	}
	return filepath.Join(home, ".tachyon")
}
