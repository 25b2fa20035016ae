package main

import (
	"os"

	"github.com/dshills/vecsync-mcp/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{Version: version, BuildTime: buildTime}))
}
