// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import "testing"

func TestURL_LowercasesSchemeAndHost(t *testing.T) {
	got, err := URL("HTTPS://Www.Example.COM/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://www.example.com/path"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_RemovesDefaultPort(t *testing.T) {
	cases := map[string]string{
		"http://example.com:80/x":   "http://example.com/x",
		"https://example.com:443/x": "https://example.com/x",
		"http://example.com:8080/x": "http://example.com:8080/x",
	}
	for in, want := range cases {
		got, err := URL(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Errorf("URL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestURL_CollapsesDuplicateSlashes(t *testing.T) {
	got, err := URL("https://example.com/a//b///c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.com/a/b/c"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_DecodesUnreservedPercentEncoding(t *testing.T) {
	got, err := URL("https://example.com/%7Euser/%2Fslash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.com/~user/%2Fslash"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_SortsQueryParamsByKey(t *testing.T) {
	got, err := URL("https://example.com/?b=2&a=1&c=3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.com/?a=1&b=2&c=3"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_PreservesVerbatimQueryOnDuplicateKeys(t *testing.T) {
	in := "https://example.com/?b=2&a=1&a=3"
	got, err := URL(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.com/?b=2&a=1&a=3"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_StripsFragment(t *testing.T) {
	got, err := URL("https://example.com/page#section-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://example.com/page"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_IsIdempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Example.COM:443/a//b?b=2&a=1#frag",
		"http://example.com:80/%7Eabc/",
		"https://example.com/?z=1&y=2&y=3",
	}
	for _, in := range inputs {
		once, err := URL(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		twice, err := URL(once)
		if err != nil {
			t.Fatalf("unexpected error normalizing already-normalized %q: %v", once, err)
		}
		if once != twice {
			t.Errorf("URL() not idempotent: URL(%q) = %q, URL(that) = %q", in, once, twice)
		}
	}
}
