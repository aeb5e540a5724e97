package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheDirName  = ".docmirror"
	cacheFileName = "cache.json"
)

// CacheRecord is the durable state kept per canonical URL across runs.
// Unknown fields in a persisted record are ignored, missing ones stay empty.
type CacheRecord struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	MD5          string `json:"md5,omitempty"`
	Title        string `json:"title,omitempty"`
	LastDownload string `json:"last_download,omitempty"`
}

// Cache maps canonical URLs to their records and knows how to persist
// itself under the output directory's hidden cache subdirectory.
type Cache struct {
	path    string
	records map[string]*CacheRecord
}

// LoadCache reads the cache file for an output directory. A missing file is
// a fresh start; an unparseable one is logged and treated as empty so a
// corrupt cache never blocks a run.
func LoadCache(outputDir string) *Cache {
	c := &Cache{
		path:    filepath.Join(outputDir, cacheDirName, cacheFileName),
		records: make(map[string]*CacheRecord),
	}

	payload, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return c
	}
	if err != nil {
		logWarn("cache unreadable, starting empty: %v", err)
		return c
	}
	if len(payload) == 0 {
		return c
	}

	if err := json.Unmarshal(payload, &c.records); err != nil {
		logWarn("cache corrupt, starting empty: %v", err)
		c.records = make(map[string]*CacheRecord)
	}
	return c
}

// Lookup returns the record for a URL, or nil when none exists.
func (c *Cache) Lookup(pageURL string) *CacheRecord {
	return c.records[pageURL]
}

// Record returns the record for a URL, creating it on first use.
func (c *Cache) Record(pageURL string) *CacheRecord {
	rec, ok := c.records[pageURL]
	if !ok {
		rec = &CacheRecord{}
		c.records[pageURL] = rec
	}
	return rec
}

// Len reports the number of cached URLs.
func (c *Cache) Len() int {
	return len(c.records)
}

// Save writes the full record map. The write goes to a temp file first and
// is renamed into place, so a reader never sees a partial cache.
func (c *Cache) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	payload, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, payload, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

// nowStamp is the ISO-8601 timestamp recorded on writes.
func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
