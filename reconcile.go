package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jaytaylor/html2text"
)

// Action is the reconciler's disposition for a fetched page.
type Action int

const (
	// ActionSkip means the page needs no write this run.
	ActionSkip Action = iota
	// ActionWrite means the raw body must be (re)persisted.
	ActionWrite
)

// reconcile decides whether a freshly fetched body needs writing and
// applies the record-mutation rule. In order: a digest match against the
// cache skips, a digest match against the file already on disk skips
// (covers a stale or rebuilt cache), anything else writes the raw body
// verbatim. Validators, digest and title are refreshed on every path; the
// download stamp only moves on an actual write.
func (m *Mirror) reconcile(pageURL string, body []byte, filename string, etag, lastModified, title string) (Action, error) {
	digest := fingerprint(string(body))
	target := filepath.Join(m.outputDir, filename)

	// The record is only created once a disposition is reached; a failed
	// write must not leave an empty record behind for the next snapshot.
	update := func() *CacheRecord {
		rec := m.cache.Record(pageURL)
		rec.ETag = etag
		rec.LastModified = lastModified
		rec.MD5 = digest
		rec.Title = title
		return rec
	}

	if rec := m.cache.Lookup(pageURL); rec != nil && rec.MD5 == digest {
		update()
		m.debug.Debug("digest match against cache", "url", pageURL, "md5", digest)
		return ActionSkip, nil
	}

	if existing, err := os.ReadFile(target); err == nil {
		if fingerprint(string(existing)) == digest {
			update()
			m.debug.Debug("digest match against file", "url", pageURL, "file", filename)
			return ActionSkip, nil
		}
	} else if !os.IsNotExist(err) {
		// Unreadable on-disk content is no basis for a comparison;
		// fall through and rewrite it.
		logWarn("existing file unreadable, rewriting: %s: %v", filename, err)
	}

	if err := os.WriteFile(target, body, 0644); err != nil {
		return ActionSkip, err
	}
	update().LastDownload = nowStamp()

	if m.textOutput {
		if err := writeTextRendition(target, body); err != nil {
			logWarn("text rendition failed for %s: %v", filename, err)
		}
	}
	return ActionWrite, nil
}

// writeTextRendition stores a plain-text companion next to an HTML file.
func writeTextRendition(htmlPath string, body []byte) error {
	text, err := html2text.FromString(string(body), html2text.Options{TextOnly: true})
	if err != nil {
		return err
	}
	textPath := strings.TrimSuffix(htmlPath, ".html") + ".txt"
	return os.WriteFile(textPath, []byte(text), 0644)
}
