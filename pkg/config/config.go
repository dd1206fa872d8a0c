// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads ferry's declarative TOML configuration and
// constructs the workflow registry the engine runs against.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ferryscm/ferry/modules/wildmatch"
	"github.com/ferryscm/ferry/pkg/migrate"
)

// Options carries command-line state that shapes the constructed graph.
type Options struct {
	// GitStorage is the root of the bare repository caches.
	GitStorage string
	// OriginURLOverride replaces every git origin URL; a console
	// warning is emitted when it takes effect.
	OriginURLOverride string
	Console           *migrate.Console
}

type file struct {
	Project   string               `toml:"project"`
	Workflows map[string]*workflow `toml:"workflows"`
}

type workflow struct {
	Mode                 string       `toml:"mode"`
	LastRevision         string       `toml:"last_revision"`
	ExcludeInOrigin      []string     `toml:"exclude_in_origin"`
	ExcludeInDestination []string     `toml:"exclude_in_destination"`
	ReversibleCheck      bool         `toml:"reversible_check"`
	AskForConfirmation   bool         `toml:"ask_for_confirmation"`
	Origin               origin       `toml:"origin"`
	Destination          destination  `toml:"destination"`
	Authoring            *authoring   `toml:"authoring"`
	Transformations      []*transform `toml:"transformations"`
}

type origin struct {
	Type     string `toml:"type"`
	URL      string `toml:"url"`
	Ref      string `toml:"ref"`
	RepoType string `toml:"repo_type"`
	Path     string `toml:"path"`
}

type destination struct {
	Type  string `toml:"type"`
	URL   string `toml:"url"`
	Fetch string `toml:"fetch"`
	Push  string `toml:"push"`
	Path  string `toml:"path"`
}

type authoring struct {
	Mode      string   `toml:"mode"`
	Default   string   `toml:"default"`
	Whitelist []string `toml:"whitelist"`
}

type transform struct {
	Type   string `toml:"type"`
	Before string `toml:"before"`
	After  string `toml:"after"`
}

// Load reads path and builds the engine configuration.
func Load(path string, opts *Options) (*migrate.Config, error) {
	var f file
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, migrate.WrapError(migrate.KindConfig, err, "%s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, migrate.NewError(migrate.KindConfig, "%s: unknown configuration keys: %s", path, strings.Join(keys, ", "))
	}
	if strings.TrimSpace(f.Project) == "" {
		return nil, migrate.NewError(migrate.KindConfig, "%s: 'project' must be a non-empty string", path)
	}
	if len(f.Workflows) == 0 {
		return nil, migrate.NewError(migrate.KindConfig, "%s: no workflows defined", path)
	}
	cfg := &migrate.Config{Project: f.Project, Workflows: make(map[string]*migrate.Workflow, len(f.Workflows))}
	for name, wc := range f.Workflows {
		w, err := buildWorkflow(f.Project, name, wc, opts)
		if err != nil {
			return nil, migrate.WrapError(migrate.KindConfig, err, "%s: workflow %q", path, name)
		}
		cfg.Workflows[name] = w
	}
	return cfg, nil
}

func buildWorkflow(project, name string, wc *workflow, opts *Options) (*migrate.Workflow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("workflow name must be non-empty")
	}
	mode := migrate.ModeSquash
	switch strings.ToUpper(wc.Mode) {
	case "", string(migrate.ModeSquash):
	case string(migrate.ModeIterative):
		mode = migrate.ModeIterative
	default:
		return nil, fmt.Errorf("unknown mode %q", wc.Mode)
	}

	auth, err := buildAuthoring(wc.Authoring)
	if err != nil {
		return nil, err
	}

	org, err := buildOrigin(&wc.Origin, auth, opts)
	if err != nil {
		return nil, err
	}
	dest, err := buildDestination(project, &wc.Destination, opts)
	if err != nil {
		return nil, err
	}

	originExcludes, err := buildMatcher(wc.ExcludeInOrigin)
	if err != nil {
		return nil, fmt.Errorf("exclude_in_origin: %w", err)
	}
	destinationExcludes, err := buildMatcher(wc.ExcludeInDestination)
	if err != nil {
		return nil, fmt.Errorf("exclude_in_destination: %w", err)
	}

	var transformations []migrate.Transformation
	for i, tc := range wc.Transformations {
		t, err := buildTransform(tc)
		if err != nil {
			return nil, fmt.Errorf("transformations[%d]: %w", i, err)
		}
		transformations = append(transformations, t)
	}
	var root migrate.Transformation
	switch len(transformations) {
	case 0:
	case 1:
		root = transformations[0]
	default:
		root = migrate.NewSequence(transformations...)
	}

	return &migrate.Workflow{
		Project:             project,
		Name:                name,
		Origin:              org,
		Destination:         dest,
		Authoring:           auth,
		Transform:           root,
		LastRevision:        migrate.Reference(wc.LastRevision),
		OriginExcludes:      originExcludes,
		DestinationExcludes: destinationExcludes,
		Mode:                mode,
		ReversibleCheck:     wc.ReversibleCheck,
		AskConfirmation:     wc.AskForConfirmation,
	}, nil
}

func buildAuthoring(ac *authoring) (*migrate.Authoring, error) {
	if ac == nil {
		return migrate.NewAuthoring(migrate.PassThrough, migrate.Author{}, nil)
	}
	mode := migrate.AuthoringMode(strings.ToUpper(ac.Mode))
	if ac.Mode == "" {
		mode = migrate.PassThrough
	}
	var def migrate.Author
	if ac.Default != "" {
		var err error
		if def, err = migrate.ParseAuthor(ac.Default); err != nil {
			return nil, fmt.Errorf("authoring: %w", err)
		}
	}
	return migrate.NewAuthoring(mode, def, ac.Whitelist)
}

func buildOrigin(oc *origin, auth *migrate.Authoring, opts *Options) (migrate.Origin, error) {
	switch oc.Type {
	case "git":
		url := oc.URL
		if opts.OriginURLOverride != "" {
			opts.Console.Warnf("Origin URL %q overridden from the command line to %q", url, opts.OriginURLOverride)
			url = opts.OriginURLOverride
		}
		return migrate.NewGitOrigin(url, oc.Ref, migrate.RepoType(oc.RepoType), opts.GitStorage, opts.Console)
	case "folder":
		return migrate.NewFolderOrigin(oc.Path, auth.DefaultAuthor())
	case "":
		return nil, fmt.Errorf("origin: missing 'type'")
	default:
		return nil, fmt.Errorf("origin: unknown type %q", oc.Type)
	}
}

func buildDestination(project string, dc *destination, opts *Options) (migrate.Destination, error) {
	switch dc.Type {
	case "git":
		return migrate.NewGitDestination(dc.URL, dc.Fetch, dc.Push, opts.GitStorage)
	case "folder":
		return migrate.NewFolderDestination(project, dc.Path), nil
	case "":
		return nil, fmt.Errorf("destination: missing 'type'")
	default:
		return nil, fmt.Errorf("destination: unknown type %q", dc.Type)
	}
}

func buildMatcher(patterns []string) (*wildmatch.Matcher, error) {
	if len(patterns) == 0 {
		return wildmatch.Empty, nil
	}
	return wildmatch.New(patterns, nil)
}

func buildTransform(tc *transform) (migrate.Transformation, error) {
	switch tc.Type {
	case "move":
		return migrate.NewMove(tc.Before, tc.After)
	case "":
		return nil, fmt.Errorf("missing 'type'")
	default:
		return nil, fmt.Errorf("unknown type %q", tc.Type)
	}
}
