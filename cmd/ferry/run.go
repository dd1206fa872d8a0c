// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferryscm/ferry/pkg/config"
	"github.com/ferryscm/ferry/pkg/migrate"
)

// expandPath resolves a leading "~/" against the user's home directory.
func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

func (a *App) Run(g *Globals) error {
	console := migrate.NewConsole(g.Verbose, a.Yes)
	cfg, err := config.Load(a.Config, &config.Options{
		GitStorage:        expandPath(g.GitRepoStorage),
		OriginURLOverride: a.GitOriginURL,
		Console:           console,
	})
	if err != nil {
		return err
	}
	engine := migrate.NewEngine(cfg, console, g.WorkDir)
	if a.LastRev != "" {
		engine.SetLastRevision(migrate.Reference(a.LastRev))
	}
	return engine.Run(context.Background(), a.Workflow, a.SourceRef)
}
