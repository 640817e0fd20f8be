// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package helprenderer implements spec section 4.9: rendering usage text
// for the empty subject, a topic, or a command from the merged plugin
// catalog.
package helprenderer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/forgecli/forge/pkg/apperrors"
	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/pluginmanager"
)

// terminalWidth is the column the second help column wraps at. The teacher
// corpus does not carry a terminal-width-detection dependency, and a fixed
// width keeps help output stable across test runs and redirected output;
// reading the real terminal width is a cosmetic nicety this core does not
// need.
const terminalWidth = 80

// Catalog is the subset of *pluginmanager.Manager the renderer needs.
type Catalog interface {
	ListTopics() []pluginmanager.TopicRecord
	FindTopic(name string) (pluginmanager.TopicRecord, bool)
	FindCommand(id string) (pluginmanager.CommandRecord, bool)
	CommandsForTopic(name string) []pluginmanager.CommandRecord
	ListRootCommands() []pluginmanager.CommandRecord
}

// Renderer produces help text from a Catalog.
type Renderer struct {
	catalog Catalog
	cfg     *cliconfig.Config
	out     io.Writer
}

// New builds a Renderer bound to catalog and cfg, writing to os.Stdout by
// default.
func New(catalog Catalog, cfg *cliconfig.Config) *Renderer {
	return &Renderer{catalog: catalog, cfg: cfg, out: os.Stdout}
}

// SetOutput overrides the writer Print uses, for tests.
func (r *Renderer) SetOutput(w io.Writer) { r.out = w }

// Print writes s to the renderer's output.
func (r *Renderer) Print(s string) {
	fmt.Fprint(r.out, s)
}

// Render resolves subject (a topic name, a command ID, or "") and returns
// its rendered help text.
func (r *Renderer) Render(subject string, all bool) (string, error) {
	if subject == "" {
		return r.renderEmpty(all), nil
	}
	if cmd, ok := r.catalog.FindCommand(subject); ok {
		return r.renderCommand(cmd), nil
	}
	if topic, ok := r.catalog.FindTopic(subject); ok {
		return r.RenderTopic(topic, r.catalog.CommandsForTopic(topic.Name), all)
	}
	return "", &apperrors.NotFoundError{ID: subject}
}

// renderEmpty implements spec section 4.9's empty-subject rendering:
// usage banner plus non-hidden top-level topics.
func (r *Renderer) renderEmpty(all bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s [command]\n\n", r.cfg.Bin)
	b.WriteString("Topics:\n")

	topics := r.catalog.ListTopics()
	rows := make([][2]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, [2]string{t.Name, t.Description})
	}
	b.WriteString(renderColumns(rows))

	if roots := r.catalog.ListRootCommands(); len(roots) > 0 {
		b.WriteString("\nCommands:\n")
		rows = rows[:0]
		for _, c := range roots {
			if c.Hidden && !all {
				continue
			}
			rows = append(rows, [2]string{c.ID, c.Description})
		}
		b.WriteString(renderColumns(rows))
	}
	return b.String()
}

// RenderTopic implements spec section 4.9's topic-subject rendering.
func (r *Renderer) RenderTopic(topic pluginmanager.TopicRecord, commands []pluginmanager.CommandRecord, all bool) (string, error) {
	var b strings.Builder
	if topic.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", topic.Description)
	}
	fmt.Fprintf(&b, "Commands in %s:\n", topic.Name)

	rows := make([][2]string, 0, len(commands))
	for _, c := range commands {
		if c.Hidden && !all {
			continue
		}
		rows = append(rows, [2]string{c.ID, c.Description})
	}
	b.WriteString(renderColumns(rows))
	return b.String(), nil
}

// renderCommand implements spec section 4.9's command-subject rendering,
// delegating to the command's own BuildHelp when it defines one.
func (r *Renderer) renderCommand(c pluginmanager.CommandRecord) string {
	if c.BuildHelp != nil {
		return c.BuildHelp()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s %s [args]\n", r.cfg.Bin, c.ID)
	if c.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Description)
	}
	if len(c.Aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s\n", strings.Join(c.Aliases, ", "))
	}
	return b.String()
}

// renderColumns aligns rows' first column to the longest label and wraps
// the second column at terminalWidth (spec section 4.9).
func renderColumns(rows [][2]string) string {
	longest := 0
	for _, row := range rows {
		if len(row[0]) > longest {
			longest = len(row[0])
		}
	}

	var b strings.Builder
	for _, row := range rows {
		label, desc := row[0], row[1]
		fmt.Fprintf(&b, "  %s", label)
		if desc == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(strings.Repeat(" ", longest-len(label)+2))
		b.WriteString(wrap(desc, terminalWidth-longest-4, longest+4))
		b.WriteString("\n")
	}
	return b.String()
}

// wrap breaks s into lines of at most width runes, joined by a newline
// plus indent spaces so the second column stays aligned. A width <= 0
// disables wrapping.
func wrap(s string, width, indent int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	words := strings.Fields(s)
	var lines []string
	var curr string
	for _, w := range words {
		if curr == "" {
			curr = w
			continue
		}
		if len(curr)+1+len(w) > width {
			lines = append(lines, curr)
			curr = w
			continue
		}
		curr += " " + w
	}
	if curr != "" {
		lines = append(lines, curr)
	}
	return strings.Join(lines, "\n"+strings.Repeat(" ", indent))
}
