// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package dispatcher implements spec section 4.8: resolving a post-binary
// argv vector to a topic, a command, or a not-found result, honoring help
// interception and alias precedence along the way.
package dispatcher

import (
	"context"
	"sort"
	"strings"

	"github.com/forgecli/forge/pkg/apperrors"
	"github.com/forgecli/forge/pkg/helprenderer"
	"github.com/forgecli/forge/pkg/pluginmanager"
)

// ExitCode classifies how a Dispatch call should terminate the process,
// per spec section 4.8's exit code table.
const (
	ExitSuccess  = 0
	ExitNotFound = 127
	ExitError    = 1
)

// maxSuggestions and suggestionMaxDistance bound the NotFound suggestion
// search (spec section 4.8: "top N where N <= 3 under distance <= 2").
const (
	maxSuggestions        = 3
	suggestionMaxDistance = 2
)

// Catalog is the subset of *pluginmanager.Manager the Dispatcher needs.
type Catalog interface {
	FindCommand(id string) (pluginmanager.CommandRecord, bool)
	FindTopic(name string) (pluginmanager.TopicRecord, bool)
	CommandsForTopic(name string) []pluginmanager.CommandRecord
	AllCommandIDs() []string
}

// Result is the outcome of a Dispatch call, carrying everything the
// top-level command loop needs to decide the process exit code.
type Result struct {
	ExitCode int
	Err      error
}

// hasHelpFlag scans argv up to a "--" terminator for --help or -h (spec
// section 4.8 step 2).
func hasHelpFlag(argv []string) bool {
	for _, a := range argv {
		if a == "--" {
			return false
		}
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

// helpSubject returns the first non-flag argv element before a "--"
// terminator, or "" if none exists (e.g. a bare "forge --help"). argv[0]
// itself being a flag like "--help" must not be treated as the subject.
func helpSubject(argv []string) string {
	for _, a := range argv {
		if a == "--" {
			return ""
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		return a
	}
	return ""
}

// Dispatch implements spec section 4.8. argv is the post-binary argument
// vector; defaultCommand is used when argv is empty.
func Dispatch(ctx context.Context, argv []string, defaultCommand string, catalog Catalog, renderer *helprenderer.Renderer) Result {
	id := ""
	if len(argv) > 0 {
		id = argv[0]
	}
	rest := argvTail(argv)

	if hasHelpFlag(argv) {
		out, err := renderer.Render(helpSubject(argv), containsAllFlag(argv))
		if err != nil {
			return Result{ExitCode: ExitError, Err: err}
		}
		renderer.Print(out)
		return Result{ExitCode: ExitSuccess}
	}

	lookupID := id
	if lookupID == "" {
		lookupID = defaultCommand
	}
	if lookupID == "" {
		lookupID = "help"
	}

	if cmd, ok := catalog.FindCommand(lookupID); ok {
		if err := cmd.Run(ctx, rest); err != nil {
			return Result{ExitCode: ExitError, Err: err}
		}
		return Result{ExitCode: ExitSuccess}
	}

	if topic, ok := catalog.FindTopic(id); ok {
		out, err := renderer.RenderTopic(topic, catalog.CommandsForTopic(topic.Name), containsAllFlag(argv))
		if err != nil {
			return Result{ExitCode: ExitError, Err: err}
		}
		renderer.Print(out)
		return Result{ExitCode: ExitSuccess}
	}

	notFound := &apperrors.NotFoundError{ID: id, Suggestions: suggest(id, catalog.AllCommandIDs())}
	return Result{ExitCode: ExitNotFound, Err: notFound}
}

// argvTail returns argv with its first element removed, or an empty slice
// if argv is empty.
func argvTail(argv []string) []string {
	if len(argv) <= 1 {
		return nil
	}
	return argv[1:]
}

// containsAllFlag reports whether --all appears anywhere before a "--"
// terminator.
func containsAllFlag(argv []string) bool {
	for _, a := range argv {
		if a == "--" {
			return false
		}
		if a == "--all" {
			return true
		}
	}
	return false
}

// suggest ranks candidates by Levenshtein distance to id, returning up to
// maxSuggestions IDs at distance <= suggestionMaxDistance, closest first
// and lexicographic on ties.
func suggest(id string, candidates []string) []string {
	type scored struct {
		id   string
		dist int
	}
	var matches []scored
	for _, c := range candidates {
		d := levenshtein(id, c)
		if d <= suggestionMaxDistance {
			matches = append(matches, scored{id: c, dist: d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].id < matches[j].id
	})

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.id
	}
	return out
}
