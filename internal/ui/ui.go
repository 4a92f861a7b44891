// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides colored terminal output helpers for the salted CLI,
// respecting NO_COLOR and non-TTY output streams.
package ui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color handles reused across the CLI. Reassigned by InitColors once flags
// and the environment have been read.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
)

// InitColors disables color output when noColor is set, NO_COLOR is present
// in the environment, or stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	fmt.Println()
	_, _ = Cyan.Add(color.Bold).Println(title)
}

// SubHeader prints a smaller section title.
func SubHeader(title string) {
	_, _ = Cyan.Println(title)
}

// Label formats a dim field label such as "Project ID:".
func Label(text string) string {
	return Dim.Sprint(text)
}

// CountText formats an integer count for display.
func CountText(n int) string {
	return strconv.Itoa(n)
}

// DimText renders text in the dim color without writing it.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// Info prints an informational line.
func Info(args ...interface{}) {
	fmt.Println(args...)
}

// Infof prints a formatted informational line.
func Infof(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// Success prints a green success line.
func Success(args ...interface{}) {
	_, _ = Green.Println(args...)
}

// Successf prints a formatted green success line.
func Successf(format string, args ...interface{}) {
	_, _ = Green.Printf(format+"\n", args...)
}

// Warning prints a yellow warning line to stderr.
func Warning(args ...interface{}) {
	_, _ = Yellow.Fprintln(os.Stderr, args...)
}

// Warningf prints a formatted yellow warning line to stderr.
func Warningf(format string, args ...interface{}) {
	_, _ = Yellow.Fprintf(os.Stderr, format+"\n", args...)
}
