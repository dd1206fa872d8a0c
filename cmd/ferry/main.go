// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Ferry performs one-way source code migrations between repositories:
// it fetches a revision from an origin, applies a sequence of
// transformations to its tree and commits the result to a destination.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/ferryscm/ferry/pkg/migrate"
	"github.com/ferryscm/ferry/pkg/version"
)

type Globals struct {
	Verbose        bool   `name:"verbose" short:"v" help:"Print subprocess invocations and progress details"`
	GitRepoStorage string `name:"git-repo-storage" placeholder:"<dir>" default:"~/.ferry/repos" help:"Root directory of the bare repository caches"`
	WorkDir        string `name:"work-dir" placeholder:"<dir>" help:"Directory where working trees are staged, system temp by default"`
}

type App struct {
	Globals
	GitOriginURL string           `name:"git-origin-url" placeholder:"<url>" help:"Override the origin repository URL declared in the configuration"`
	LastRev      string           `name:"last-rev" placeholder:"<ref>" help:"Last origin revision already present in the destination"`
	Yes          bool             `name:"yes" short:"y" help:"Answer yes to every confirmation prompt"`
	Version      kong.VersionFlag `name:"version" help:"Show version information and quit"`

	Config    string `arg:"" name:"config" help:"Configuration file" type:"existingfile"`
	Workflow  string `arg:"" name:"workflow" help:"Name of the workflow to run"`
	SourceRef string `arg:"" optional:"" name:"ref" help:"Origin reference to migrate, defaults to the configured reference"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("ferry"),
		kong.Description("ferry - migrate source code revisions between repositories"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.GetVersionString(),
		},
	)
	logrus.SetOutput(os.Stderr)
	if app.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := ctx.Run(&app.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "ferry: error: %v\n", err)
		os.Exit(migrate.ExitCode(err))
	}
}
