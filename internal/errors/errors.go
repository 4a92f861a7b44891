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

// Package errors provides structured, user-facing error types for the
// salted CLI: a title, a description, a suggestion, and an optional
// wrapped cause. FatalError prints one and exits the process.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// UserError is a terminal error meant to be shown directly to the operator.
type UserError struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Cause       error  `json:"-"`
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Title, e.Description, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Description)
}

func (e *UserError) Unwrap() error { return e.Cause }

func newError(kind, title, description, suggestion string, cause error) *UserError {
	return &UserError{
		Kind:        kind,
		Title:       title,
		Description: description,
		Suggestion:  suggestion,
		Cause:       cause,
	}
}

// NewConfigError reports a problem with CLI flags or the INI config file.
func NewConfigError(title, description, suggestion string, cause error) *UserError {
	return newError("config", title, description, suggestion, cause)
}

// NewInputError reports a problem with the search path or an unsupported file.
func NewInputError(title, description, suggestion string, cause error) *UserError {
	return newError("input", title, description, suggestion, cause)
}

// NewDatabaseError reports a problem opening, writing, or reading the staging
// store or the on-disk cache.
func NewDatabaseError(title, description, suggestion string, cause error) *UserError {
	return newError("database", title, description, suggestion, cause)
}

// NewNetworkError reports a problem establishing an HTTP client or resolver.
func NewNetworkError(title, description, suggestion string, cause error) *UserError {
	return newError("network", title, description, suggestion, cause)
}

// NewPermissionError reports a filesystem permission failure.
func NewPermissionError(title, description, suggestion string, cause error) *UserError {
	return newError("permission", title, description, suggestion, cause)
}

// NewInternalError reports a condition that should never happen.
func NewInternalError(title, description, suggestion string, cause error) *UserError {
	return newError("internal", title, description, suggestion, cause)
}

// NewDeadLinksError reports that raise_for_dead_links is set and the run
// produced at least one Error row. Always raised after the cache write.
func NewDeadLinksError(numErrors int) *UserError {
	return newError(
		"dead-links",
		"Dead links found",
		fmt.Sprintf("%d hyperlink(s) returned a permanent error", numErrors),
		"Review the report above, fix or remove the broken links, and re-run.",
		nil,
	)
}

// FatalError prints a UserError (or any error) and exits with a non-zero
// status. If err is not a *UserError it is wrapped as an internal error.
// When jsonMode is true the error is emitted as a single JSON object on
// stdout instead of a human-readable message on stderr.
func FatalError(err error, jsonMode bool) {
	ue, ok := err.(*UserError)
	if !ok {
		ue = NewInternalError("Unexpected error", err.Error(), "Please report this issue.", err)
	}

	if jsonMode {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(ue)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", ue.Title)
		if ue.Description != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", ue.Description)
		}
		if ue.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", ue.Suggestion)
		}
		if ue.Cause != nil {
			fmt.Fprintf(os.Stderr, "  Cause: %v\n", ue.Cause)
		}
	}
	os.Exit(1)
}
