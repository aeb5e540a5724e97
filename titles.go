package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TitleIndex maps a page title to the output file that first claimed it.
// A nil index means duplicate checking is off and nothing ever collides.
type TitleIndex struct {
	owners map[string]string
}

// NewTitleIndex returns an empty, active index.
func NewTitleIndex() *TitleIndex {
	return &TitleIndex{owners: make(map[string]string)}
}

// BuildTitleIndex scans the HTML files already persisted in dir and indexes
// their titles, so this run deduplicates against earlier runs too. Files
// without a readable title are skipped.
func BuildTitleIndex(dir string) (*TitleIndex, error) {
	index := NewTitleIndex()

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			logWarn("unreadable while indexing titles: %s: %v", entry.Name(), err)
			continue
		}
		if title := extractTitle(data); title != "" {
			index.Claim(title, entry.Name())
		}
	}
	return index, nil
}

// Owner reports the filename that holds a title. Always a miss on a nil
// index or an empty title.
func (ti *TitleIndex) Owner(title string) (string, bool) {
	if ti == nil || title == "" {
		return "", false
	}
	owner, ok := ti.owners[title]
	return owner, ok
}

// Claim registers a title for a filename. The first claim wins; a repeat
// claim for an already-owned title reports false and changes nothing.
func (ti *TitleIndex) Claim(title, filename string) bool {
	if ti == nil || title == "" {
		return false
	}
	if _, taken := ti.owners[title]; taken {
		return false
	}
	ti.owners[title] = filename
	return true
}

// titleReport accumulates URL/title pairs during a --list-titles run.
type titleReport struct {
	titles map[string]string
}

func newTitleReport() *titleReport {
	return &titleReport{titles: make(map[string]string)}
}

func (tr *titleReport) add(pageURL, title string) {
	tr.titles[pageURL] = title
}

// write emits the report file, one URL-tab-title line per page, sorted by
// URL so successive runs diff cleanly.
func (tr *titleReport) write(path string) error {
	urls := make([]string, 0, len(tr.titles))
	for u := range tr.titles {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var sb strings.Builder
	for _, u := range urls {
		fmt.Fprintf(&sb, "%s\t%s\n", u, tr.titles[u])
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}
