package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gocolly/colly/v2"
)

func page(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>", title, body)
}

// docsSite is a small documentation site with an entry page linking /a and
// /b. When etag is non-empty the handlers answer conditional requests.
func docsSite(t *testing.T, etag string, hits map[string]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, title, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			hits[path]++
			if etag != "" {
				if r.Header.Get("If-None-Match") == etag {
					w.WriteHeader(http.StatusNotModified)
					return
				}
				w.Header().Set("ETag", etag)
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, page(title, body))
		})
	}
	serve("/", "Home", `<a href="/a">a</a> <a href="/b">b</a>`)
	serve("/a", "Alpha", "<p>alpha content</p>")
	serve("/b", "Beta", "<p>beta content</p>")
	return httptest.NewServer(mux)
}

func newTestMirror(t *testing.T, targetURL, dir string, opts MirrorOptions) *Mirror {
	t.Helper()
	m, err := NewMirror(targetURL, dir, opts)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRunFreshSite(t *testing.T) {
	hits := make(map[string]int)
	server := docsSite(t, `"v1"`, hits)
	defer server.Close()

	dir := t.TempDir()
	m := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	if m.Stats().written != 3 {
		t.Errorf("written = %d, want 3", m.Stats().written)
	}
	for _, name := range []string{"index.html", "a.html", "b.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}

	cache := LoadCache(dir)
	if cache.Len() != 3 {
		t.Fatalf("cache has %d entries, want 3", cache.Len())
	}
	rec := cache.Lookup(server.URL + "/a")
	if rec == nil {
		t.Fatal("no cache record for /a")
	}
	if rec.MD5 == "" || rec.ETag != `"v1"` || rec.LastDownload == "" || rec.Title != "Alpha" {
		t.Errorf("record incomplete: %+v", rec)
	}
}

func TestRunIdempotentViaDigest(t *testing.T) {
	// No validators from the server: the second run must still write
	// nothing because the digests match.
	hits := make(map[string]int)
	server := docsSite(t, "", hits)
	defer server.Close()

	dir := t.TempDir()
	first := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := first.Run(); err != nil {
		t.Fatal(err)
	}

	aInfo, err := os.Stat(filepath.Join(dir, "a.html"))
	if err != nil {
		t.Fatal(err)
	}

	second := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := second.Run(); err != nil {
		t.Fatal(err)
	}

	stats := second.Stats()
	if stats.written != 0 {
		t.Errorf("second run wrote %d pages, want 0", stats.written)
	}
	if stats.skipped != 2 {
		t.Errorf("second run skipped %d pages, want 2", stats.skipped)
	}
	after, err := os.Stat(filepath.Join(dir, "a.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(aInfo.ModTime()) {
		t.Error("a.html was rewritten on an unchanged run")
	}
}

func TestRunNotModifiedShortCircuit(t *testing.T) {
	hits := make(map[string]int)
	server := docsSite(t, `"v1"`, hits)
	defer server.Close()

	dir := t.TempDir()
	first := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := first.Run(); err != nil {
		t.Fatal(err)
	}
	before := *LoadCache(dir).Lookup(server.URL + "/a")

	second := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := second.Run(); err != nil {
		t.Fatal(err)
	}

	stats := second.Stats()
	if stats.written != 0 || stats.skipped != 2 {
		t.Errorf("second run stats = %+v, want 0 written / 2 skipped", stats)
	}
	after := *LoadCache(dir).Lookup(server.URL + "/a")
	if after != before {
		t.Errorf("304 mutated the record: %+v vs %+v", after, before)
	}
}

func TestRunEntryReuseAndForce(t *testing.T) {
	hits := make(map[string]int)
	server := docsSite(t, "", hits)
	defer server.Close()

	dir := t.TempDir()
	first := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := first.Run(); err != nil {
		t.Fatal(err)
	}
	if hits["/"] != 1 {
		t.Fatalf("entry fetched %d times on first run, want 1", hits["/"])
	}

	second := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := second.Run(); err != nil {
		t.Fatal(err)
	}
	if hits["/"] != 1 {
		t.Errorf("entry refetched without --force (%d hits)", hits["/"])
	}

	third := newTestMirror(t, server.URL, dir, MirrorOptions{Force: true})
	if err := third.Run(); err != nil {
		t.Fatal(err)
	}
	if hits["/"] != 2 {
		t.Errorf("entry not refetched with --force (%d hits)", hits["/"])
	}
}

func TestRunDuplicateTitleSuppression(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Home", `<a href="/intro-copy">copy</a>`))
	})
	mux.HandleFunc("/intro-copy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Intro", "<p>a different body entirely</p>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	existing := page("Intro", "<p>the original</p>")
	if err := os.WriteFile(filepath.Join(dir, "existing.html"), []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	m := newTestMirror(t, server.URL, dir, MirrorOptions{CheckTitleDuplicate: true})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "intro-copy.html")); !os.IsNotExist(err) {
		t.Error("duplicate-titled page was persisted")
	}
	rec := LoadCache(dir).Lookup(server.URL + "/intro-copy")
	if rec == nil {
		t.Fatal("suppressed URL has no cache record")
	}
	if rec.Title != "Intro" {
		t.Errorf("suppressed record title = %q, want Intro", rec.Title)
	}
	if rec.MD5 != "" || rec.LastDownload != "" {
		t.Errorf("suppressed record should carry no digest or download stamp: %+v", rec)
	}
}

func TestRunDuplicateTitleSameRunFirstWins(t *testing.T) {
	// Two fresh pages share a title within one walk: the first-seen link
	// claims it, the second is suppressed.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Home", `<a href="/first">1</a> <a href="/second">2</a>`))
	})
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Shared", "<p>the first body</p>"))
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Shared", "<p>a second body</p>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	m := newTestMirror(t, server.URL, dir, MirrorOptions{CheckTitleDuplicate: true})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "first.html")); err != nil {
		t.Errorf("first-seen page not persisted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "second.html")); !os.IsNotExist(err) {
		t.Error("later page with the same title was persisted")
	}
	rec := LoadCache(dir).Lookup(server.URL + "/second")
	if rec == nil || rec.Title != "Shared" {
		t.Fatalf("suppressed record missing or wrong title: %+v", rec)
	}
	if rec.MD5 != "" || rec.LastDownload != "" {
		t.Errorf("suppressed record should carry no digest or download stamp: %+v", rec)
	}
}

func TestRunDuplicateTitleRerunKeepsOwnPages(t *testing.T) {
	// A page whose title already maps to its own file must not be
	// suppressed on a re-run.
	hits := make(map[string]int)
	server := docsSite(t, "", hits)
	defer server.Close()

	dir := t.TempDir()
	first := newTestMirror(t, server.URL, dir, MirrorOptions{CheckTitleDuplicate: true})
	if err := first.Run(); err != nil {
		t.Fatal(err)
	}

	second := newTestMirror(t, server.URL, dir, MirrorOptions{CheckTitleDuplicate: true})
	if err := second.Run(); err != nil {
		t.Fatal(err)
	}
	if second.Stats().skipped != 2 {
		t.Errorf("re-run skipped = %d, want 2 (unchanged, not suppressed)", second.Stats().skipped)
	}
	rec := LoadCache(dir).Lookup(server.URL + "/a")
	if rec == nil || rec.MD5 == "" {
		t.Errorf("re-run lost the digest for /a: %+v", rec)
	}
}

func TestRunIgnorePattern(t *testing.T) {
	hits := make(map[string]int)
	server := docsSite(t, "", hits)
	defer server.Close()

	dir := t.TempDir()
	m := newTestMirror(t, server.URL, dir, MirrorOptions{
		Ignore: []*regexp.Regexp{regexp.MustCompile(`/b$`)},
	})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	if hits["/b"] != 0 {
		t.Error("ignored URL was fetched")
	}
	if _, err := os.Stat(filepath.Join(dir, "b.html")); !os.IsNotExist(err) {
		t.Error("ignored URL was persisted")
	}
	if m.Stats().ignored != 1 {
		t.Errorf("ignored = %d, want 1", m.Stats().ignored)
	}
}

func TestRunTransportFailureContained(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Home", `<a href="/broken">x</a> <a href="/b">b</a>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page("Beta", "<p>b</p>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	m := newTestMirror(t, server.URL, dir, MirrorOptions{})
	if err := m.Run(); err != nil {
		t.Fatalf("single-URL failure escaped the walk: %v", err)
	}

	stats := m.Stats()
	if stats.failed != 1 {
		t.Errorf("failed = %d, want 1", stats.failed)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.html")); err != nil {
		t.Error("the walk did not continue past the failure")
	}
	if LoadCache(dir).Lookup(server.URL+"/broken") != nil {
		t.Error("failed URL gained a cache record")
	}
}

func TestRunListTitles(t *testing.T) {
	hits := make(map[string]int)
	server := docsSite(t, `"v1"`, hits)
	defer server.Close()

	dir := t.TempDir()
	m := newTestMirror(t, server.URL, dir, MirrorOptions{ListTitles: true})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "titles.txt"))
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)
	for _, want := range []string{"Home", "Alpha", "Beta"} {
		if !strings.Contains(report, want) {
			t.Errorf("titles report missing %q:\n%s", want, report)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "index.html")); !os.IsNotExist(err) {
		t.Error("list-titles wrote HTML output")
	}
	if _, err := os.Stat(filepath.Join(dir, cacheDirName, cacheFileName)); !os.IsNotExist(err) {
		t.Error("list-titles touched the cache")
	}
}

func TestRunEntryFailureFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	m := newTestMirror(t, server.URL, t.TempDir(), MirrorOptions{})
	if err := m.Run(); err == nil {
		t.Fatal("entry-page failure did not abort the run")
	}
}

func TestIsAlreadyVisitedError(t *testing.T) {
	visited := colly.ErrAlreadyVisited
	if !isAlreadyVisitedError(visited) {
		t.Error("AlreadyVisitedError not recognized")
	}
	if !isAlreadyVisitedError(fmt.Errorf("visit: %w", visited)) {
		t.Error("wrapped AlreadyVisitedError not recognized")
	}
	if isAlreadyVisitedError(fmt.Errorf("connection refused")) {
		t.Error("unrelated error misclassified")
	}
	if isAlreadyVisitedError(nil) {
		t.Error("nil error misclassified")
	}
}
