package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitesmith/cmd/sitesmith/commands"
	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("sitesmith"),
		kong.Description("Build static sites from composable HTML templates."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default()}
	if cli.Trace {
		tp, err := commands.NewTracerProvider(os.Stderr)
		if err != nil {
			foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
			return
		}
		global.TracerProvider = tp
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	err := ctx.Run(global, cli)
	foundationerrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
