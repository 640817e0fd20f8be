// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package logx is the process's logging surface. Its call shape --
// Info/Infof/Warning/Warningf/Error/Errorf -- mirrors the teacher's own
// log.Info/log.Warningf/... calls scattered across pkg/pluginmanager and
// pkg/command, but is backed by a small local writer instead of an
// external plugin-runtime log package, since this core has no equivalent
// of the teacher's cross-plugin logging protocol.
package logx

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	out        io.Writer = os.Stderr
	warnColor            = color.New(color.FgYellow)
	errColor             = color.New(color.FgRed)
	verbose    bool
)

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) { out = w }

// SetVerbose toggles whether Debugf messages are emitted at all (Info and
// the other levels always print), controlled in practice by the
// DEBUG-style verbosity selector spec section 6 lists among the
// environment variables the core reads.
func SetVerbose(v bool) { verbose = v }

// IsInteractive reports whether stderr is attached to a terminal, used to
// decide whether to draw a progress bar or colorize output at all.
func IsInteractive() bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorize(c *color.Color, format string) string {
	if !IsInteractive() {
		return format
	}
	return c.Sprint(format)
}

// Info logs an informational message.
func Info(args ...interface{}) {
	fmt.Fprintln(out, args...)
}

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) {
	fmt.Fprintf(out, format+"\n", args...)
}

// Warning logs a warning, colorized yellow on a TTY.
func Warning(args ...interface{}) {
	fmt.Fprintln(out, colorize(warnColor, "Warning: "+fmt.Sprint(args...)))
}

// Warningf logs a formatted warning, colorized yellow on a TTY.
func Warningf(format string, args ...interface{}) {
	fmt.Fprintln(out, colorize(warnColor, "Warning: "+fmt.Sprintf(format, args...)))
}

// Error logs an error, colorized red on a TTY.
func Error(args ...interface{}) {
	fmt.Fprintln(out, colorize(errColor, fmt.Sprint(args...)))
}

// Errorf logs a formatted error, colorized red on a TTY.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintln(out, colorize(errColor, fmt.Sprintf(format, args...)))
}

// Debugf only logs when SetVerbose(true) was called.
func Debugf(format string, args ...interface{}) {
	if !verbose {
		return
	}
	fmt.Fprintf(out, "[debug] "+format+"\n", args...)
}
