package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly/v2"
)

// runStats counts per-URL outcomes over one walk.
type runStats struct {
	written int
	skipped int
	failed  int
	ignored int
}

// Mirror walks a documentation site: the entry page plus every same-origin
// link found on it, one URL at a time, deciding per page whether anything
// needs fetching or writing at all.
type Mirror struct {
	entry      *url.URL
	entryCanon string
	outputDir  string

	cache     *Cache
	titles    *TitleIndex // nil when duplicate checking is off
	processed map[string]struct{}
	ignore    []*regexp.Regexp

	force         bool
	textOutput    bool
	snapshotEvery int
	userAgent     string
	timeout       time.Duration

	listOnly bool
	report   *titleReport

	collector  *colly.Collector
	entryLinks []string
	entryErr   error

	stats runStats
	debug *log.Logger
}

// MirrorOptions carries the merged CLI/config settings into NewMirror.
type MirrorOptions struct {
	Force               bool
	Text                bool
	CheckTitleDuplicate bool
	ListTitles          bool
	SnapshotEvery       int
	UserAgent           string
	Timeout             time.Duration
	Ignore              []*regexp.Regexp
	Debug               *log.Logger
}

// NewMirror prepares the output directory, loads the durable cache and, when
// duplicate checking is on, indexes the titles of already-persisted files.
func NewMirror(targetURL, outputDir string, opts MirrorOptions) (*Mirror, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("URL must include a host")
	}

	if outputDir == "" {
		outputDir = strings.ReplaceAll(parsed.Host, ".", "_")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Mirror{
		entry:         parsed,
		entryCanon:    canonicalURL(parsed),
		outputDir:     outputDir,
		cache:         LoadCache(outputDir),
		processed:     make(map[string]struct{}),
		ignore:        opts.Ignore,
		force:         opts.Force,
		textOutput:    opts.Text,
		snapshotEvery: opts.SnapshotEvery,
		userAgent:     opts.UserAgent,
		timeout:       opts.Timeout,
		listOnly:      opts.ListTitles,
		debug:         opts.Debug,
	}
	if m.snapshotEvery <= 0 {
		m.snapshotEvery = defaultSnapshotEvery
	}
	if m.userAgent == "" {
		m.userAgent = defaultUserAgent
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeoutSec * time.Second
	}
	if m.debug == nil {
		m.debug = log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	}

	if opts.CheckTitleDuplicate && !m.listOnly {
		index, err := BuildTitleIndex(outputDir)
		if err != nil {
			return nil, err
		}
		m.titles = index
		m.debug.Debug("title index built", "titles", len(index.owners))
	}
	if m.listOnly {
		m.report = newTitleReport()
	}

	m.collector = m.newCollector()
	return m, nil
}

// newCollector builds the synchronous colly collector: same-origin only,
// error statuses surfaced to OnResponse so a 304 is observable.
func (m *Mirror) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.AllowedDomains(m.entry.Hostname()),
		colly.MaxDepth(2),
		colly.UserAgent(m.userAgent),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(m.timeout)

	c.OnRequest(m.negotiateRequest)
	c.OnResponse(m.handleResponse)
	c.OnHTML("a[href]", m.collectEntryLink)
	c.OnError(func(r *colly.Response, err error) {
		pageURL := canonicalURL(r.Request.URL)
		if pageURL == m.entryCanon {
			m.entryErr = err
			return
		}
		logError("error visiting %s: %v", pageURL, err)
		m.stats.failed++
	})

	return c
}

// negotiateRequest attaches the stored validators to an outgoing request so
// the server can answer 304. Validators are only sent when we actually hold
// a copy of the page: a not-modified answer without a local file would
// leave nothing to fall back on. List-title runs always want a body.
func (m *Mirror) negotiateRequest(r *colly.Request) {
	logVisit(r.URL.String())
	if m.listOnly {
		return
	}

	pageURL := canonicalURL(r.URL)
	if pageURL == m.entryCanon {
		// The entry page is only fetched when its body is needed for
		// link discovery; a 304 would leave nothing to walk.
		return
	}
	rec := m.cache.Lookup(pageURL)
	if rec == nil {
		return
	}
	target := filepath.Join(m.outputDir, filenameForURL(r.URL))
	if _, err := os.Stat(target); err != nil {
		return
	}

	if rec.ETag != "" {
		r.Headers.Set("If-None-Match", rec.ETag)
	}
	if rec.LastModified != "" {
		r.Headers.Set("If-Modified-Since", rec.LastModified)
	}
	m.debug.Debug("conditional request", "url", pageURL, "etag", rec.ETag, "last_modified", rec.LastModified)
}

// collectEntryLink gathers candidate links, but only off the entry page.
func (m *Mirror) collectEntryLink(e *colly.HTMLElement) {
	if canonicalURL(e.Request.URL) != m.entryCanon {
		return
	}
	href := e.Attr("href")
	absolute := e.Request.AbsoluteURL(href)
	if absolute == "" {
		return
	}
	resolved, err := url.Parse(absolute)
	if err != nil {
		return
	}
	if !strings.EqualFold(resolved.Hostname(), m.entry.Hostname()) {
		return
	}
	m.entryLinks = append(m.entryLinks, canonicalURL(resolved))
}

// handleResponse is the per-URL pipeline: 304 short-circuit, title
// extraction, duplicate-title suppression, then the reconciler.
func (m *Mirror) handleResponse(r *colly.Response) {
	pageURL := canonicalURL(r.Request.URL)

	if r.StatusCode == http.StatusNotModified {
		// Definitive: content unchanged, validators stay as they are.
		logSkip("not modified: %s", pageURL)
		m.stats.skipped++
		return
	}
	if r.StatusCode < 200 || r.StatusCode >= 300 {
		logError("error visiting %s: %d %s", pageURL, r.StatusCode, http.StatusText(r.StatusCode))
		if pageURL == m.entryCanon {
			m.entryErr = fmt.Errorf("entry page returned status %d", r.StatusCode)
		}
		m.stats.failed++
		return
	}

	title := extractTitle(r.Body)

	if m.listOnly {
		m.report.add(pageURL, title)
		logDim("%s — %q", pageURL, title)
		return
	}

	etag := r.Headers.Get("ETag")
	lastModified := r.Headers.Get("Last-Modified")
	filename := filenameForURL(r.Request.URL)
	isEntry := pageURL == m.entryCanon

	if !isEntry {
		if owner, ok := m.titles.Owner(title); ok && owner != filename {
			// Duplicate title: never persisted, but the transport
			// state and the page's identity are still recorded.
			logSkip("duplicate title %q (kept %s): %s", title, owner, pageURL)
			rec := m.cache.Record(pageURL)
			rec.ETag = etag
			rec.LastModified = lastModified
			rec.Title = title
			m.stats.skipped++
			return
		}
	}
	m.titles.Claim(title, filename)

	action, err := m.reconcile(pageURL, r.Body, filename, etag, lastModified, title)
	if err != nil {
		logError("failed to save %s: %v", pageURL, err)
		if isEntry {
			m.entryErr = err
		}
		m.stats.failed++
		return
	}

	switch action {
	case ActionWrite:
		logSuccess("saved: %s -> %s", pageURL, filename)
		m.stats.written++
	case ActionSkip:
		logSkip("unchanged: %s", pageURL)
		m.stats.skipped++
	}
}

// Run executes the walk: entry page, then each discovered link in
// first-seen order, with a cache snapshot every few URLs so a crash loses
// bounded progress. The final cache write happens even when single URLs
// failed along the way.
func (m *Mirror) Run() error {
	links, err := m.fetchEntry()
	if err != nil {
		return err
	}

	processed := 0
	for _, link := range links {
		if m.ignoredURL(link) {
			logDim("ignored: %s", link)
			m.stats.ignored++
			continue
		}
		if _, seen := m.processed[link]; seen {
			continue
		}
		m.processed[link] = struct{}{}

		if err := m.collector.Visit(link); err != nil && !isAlreadyVisitedError(err) {
			logError("error visiting %s: %v", link, err)
			m.stats.failed++
		}

		processed++
		if !m.listOnly && processed%m.snapshotEvery == 0 {
			if err := m.cache.Save(); err != nil {
				logWarn("cache snapshot failed: %v", err)
			} else {
				m.debug.Debug("cache snapshot", "processed", processed, "records", m.cache.Len())
			}
		}
	}

	if m.listOnly {
		reportPath := filepath.Join(m.outputDir, "titles.txt")
		if err := m.report.write(reportPath); err != nil {
			return fmt.Errorf("write titles report: %w", err)
		}
		logInfo("titles report written to %s", reportPath)
		return nil
	}
	return m.cache.Save()
}

// fetchEntry resolves the entry page: reuse the saved copy unless --force
// or none exists, otherwise fetch it through the normal pipeline (minus the
// duplicate-title skip, which never applies to the entry). Returns the
// discovered candidate links. Entry failure is fatal to the run.
func (m *Mirror) fetchEntry() ([]string, error) {
	m.processed[m.entryCanon] = struct{}{}
	target := filepath.Join(m.outputDir, filenameForURL(m.entry))

	if !m.force && !m.listOnly {
		if data, err := os.ReadFile(target); err == nil {
			logInfo("reusing saved entry page %s", filepath.Base(target))
			return extractLinks(data, m.entry), nil
		}
	}

	m.entryLinks = nil
	m.entryErr = nil
	if err := m.collector.Visit(m.entryCanon); err != nil {
		return nil, fmt.Errorf("fetch entry page: %w", err)
	}
	if m.entryErr != nil {
		return nil, fmt.Errorf("fetch entry page: %w", m.entryErr)
	}
	return m.entryLinks, nil
}

// ignoredURL reports whether any configured ignore pattern matches the full
// resolved URL. Matching excludes the URL before any fetch.
func (m *Mirror) ignoredURL(pageURL string) bool {
	for _, re := range m.ignore {
		if re.MatchString(pageURL) {
			return true
		}
	}
	return false
}

// Stats returns the outcome counters for the completed run.
func (m *Mirror) Stats() runStats {
	return m.stats
}
