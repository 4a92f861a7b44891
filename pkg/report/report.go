// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report renders the staging store's per-file views into a
// templated summary, written either to the CLI or to a file.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/rvoigt/salted/pkg/store"
)

// Data is the root object exposed to the report template.
type Data struct {
	AccessErrors []store.FileAccessError
	Errors       []store.FileReport
	Redirects    []store.FileReport
	Exceptions   []store.FileReport
	BaseURL      string
}

const defaultTemplate = `{{if .AccessErrors}}Files that could not be read:
{{range .AccessErrors}}  {{.FilePath}}: {{.Problem}}
{{end}}{{end}}{{if .Errors}}
Broken links:
{{range .Errors}}  {{.FilePath}} ({{.Count}})
{{range .Defects}}    [{{.Detail}}] {{.URL}}{{if .LinkText}} ({{.LinkText}}){{end}}
{{end}}{{end}}{{end}}{{if .Redirects}}
Permanent redirects:
{{range .Redirects}}  {{.FilePath}} ({{.Count}})
{{range .Defects}}    [{{.Detail}}] {{.URL}}{{if .LinkText}} ({{.LinkText}}){{end}}
{{end}}{{end}}{{end}}{{if .Exceptions}}
Exceptions:
{{range .Exceptions}}  {{.FilePath}} ({{.Count}})
{{range .Defects}}    [{{.Detail}}] {{.URL}}{{if .LinkText}} ({{.LinkText}}){{end}}
{{end}}{{end}}{{end}}{{if and (not .AccessErrors) (not .Errors) (not .Redirects) (not .Exceptions)}}No problems found.
{{end}}`

// Load builds the report template. If searchPath and name are both set,
// the named file under searchPath is parsed; otherwise the built-in
// default template is used.
func Load(searchPath, name string) (*template.Template, error) {
	if searchPath == "" || name == "" {
		return template.New("report").Parse(defaultTemplate)
	}
	path := searchPath + string(os.PathSeparator) + name
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report template %s: %w", path, err)
	}
	return template.New(name).Parse(string(content))
}

// Render gathers every per-file view from s and executes tmpl, prefixing
// each reported file path with baseURL when set.
func Render(tmpl *template.Template, s *store.Store, baseURL string) (string, error) {
	accessErrors, err := s.AccessErrors()
	if err != nil {
		return "", err
	}
	errs, err := s.ErrorsByFile()
	if err != nil {
		return "", err
	}
	redirects, err := s.RedirectsByFile()
	if err != nil {
		return "", err
	}
	exceptions, err := s.ExceptionsByFile()
	if err != nil {
		return "", err
	}

	if baseURL != "" {
		rewriteFilePaths(accessErrors, baseURL)
		rewriteReportPaths(errs, baseURL)
		rewriteReportPaths(redirects, baseURL)
		rewriteReportPaths(exceptions, baseURL)
	}

	data := Data{
		AccessErrors: accessErrors,
		Errors:       errs,
		Redirects:    redirects,
		Exceptions:   exceptions,
		BaseURL:      baseURL,
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func rewriteFilePaths(rows []store.FileAccessError, baseURL string) {
	for i := range rows {
		rows[i].FilePath = joinBaseURL(baseURL, rows[i].FilePath)
	}
}

func rewriteReportPaths(rows []store.FileReport, baseURL string) {
	for i := range rows {
		rows[i].FilePath = joinBaseURL(baseURL, rows[i].FilePath)
	}
}

func joinBaseURL(baseURL, filePath string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(filePath, "/")
}

// WriteTo writes rendered to destination: "cli" means stdout, anything
// else is treated as a file path.
func WriteTo(destination, rendered string, stdout io.Writer) error {
	if destination == "" || destination == "cli" {
		_, err := io.WriteString(stdout, rendered)
		return err
	}
	return os.WriteFile(destination, []byte(rendered), 0o644)
}
