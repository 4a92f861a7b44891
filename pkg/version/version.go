// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package version carries the salted release identifier used in default
// User-Agent strings and the CLI --version output.
package version

// Version is the salted release string. Overridden via -ldflags at build
// time in release builds; "dev" otherwise.
var Version = "dev"

// ProjectURL is advertised in the polite CrossRef User-Agent.
const ProjectURL = "https://github.com/RuedigerVoigt/salted"

// ContactEmail is advertised in the polite CrossRef User-Agent.
const ContactEmail = "contact@example.invalid"
