package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the card game server"`
	Deck    DeckCmd          `cmd:"" help:"Work with card set files"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("partydeck"),
		kong.Description("Real-time multiplayer card matching party game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
