package flags

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/gfarm/params"
)

// NewApp creates an app with sane defaults.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Name = filepath.Base(os.Args[0])
	app.Version = params.VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2024-2026 The gfarm Authors"
	return app
}
