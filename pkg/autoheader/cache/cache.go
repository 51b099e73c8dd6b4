// Package cache remembers the content hash of every file a stamp run wrote or
// found current, so untouched files are not restamped on the next run.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCacheFormat specifies the default serialization format.
	DefaultCacheFormat = "gob"
	CacheFormatGob     = "gob"
	CacheFormatJSON    = "json"
)

// ErrCacheLoad indicates the cache index could not be opened. Decode errors
// and version mismatches are not reported; they produce an empty index.
var ErrCacheLoad = errors.New("failed to load cache index")

// ErrCachePersist indicates an error occurred while persisting the cache index file.
// The stamp run itself may still succeed.
var ErrCachePersist = errors.New("failed to persist cache index")

// CacheEntry is the stored state of one stamped file.
type CacheEntry struct {
	ModTime      time.Time `json:"modTime"`      // Modification time after the file was stamped.
	ContentHash  string    `json:"contentHash"`  // SHA-256 of the file content after stamping.
	SettingsHash string    `json:"settingsHash"` // Hash of the header settings in effect.
	Mode         string    `json:"mode"`         // Edit mode applied on that run ("insert", "update", "none").
}

// CacheFileHeader precedes the index and is validated on Load.
type CacheFileHeader struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type jsonCacheFile struct {
	Header CacheFileHeader       `json:"header"`
	Index  map[string]CacheEntry `json:"index"`
}

// CacheManager loads, queries, updates and persists the stamp cache.
// Check and Update are called concurrently by stamp workers.
type CacheManager interface {
	Load(cachePath string) error
	Check(filePath string, modTime time.Time, contentHash string, settingsHash string) bool
	Update(filePath string, entry CacheEntry) error
	Persist(cachePath string) error
}

// NoOpCacheManager is used when caching is disabled.
type NoOpCacheManager struct{}

func (NoOpCacheManager) Load(string) error { return nil }

func (NoOpCacheManager) Check(string, time.Time, string, string) bool { return false }

func (NoOpCacheManager) Update(string, CacheEntry) error { return nil }

func (NoOpCacheManager) Persist(string) error { return nil }

type fileCacheManager struct {
	index         map[string]CacheEntry // keyed by slash-separated path relative to the input root
	mu            sync.RWMutex
	logger        *slog.Logger
	schemaVersion string
	toolVersion   string
	format        string
}

// NewFileCacheManager creates a cache manager persisting to a local file in
// the given format ("gob" or "json"; anything else falls back to gob).
func NewFileCacheManager(loggerHandler slog.Handler, schemaVersion, toolVersion, cacheFormat string) CacheManager {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format := strings.ToLower(cacheFormat)
	if format != CacheFormatJSON && format != CacheFormatGob {
		format = DefaultCacheFormat
	}
	if toolVersion == "" {
		toolVersion = "dev"
	}
	logger := slog.New(loggerHandler).With(
		slog.String("component", "cacheManager"),
		slog.String("format", format),
	)
	return &fileCacheManager{
		index:         make(map[string]CacheEntry),
		logger:        logger,
		schemaVersion: schemaVersion,
		toolVersion:   toolVersion,
		format:        format,
	}
}

// Load implements CacheManager.
func (c *fileCacheManager) Load(cachePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]CacheEntry)

	file, err := os.Open(cachePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("Cache file not found, starting with empty index", "path", cachePath)
			return nil
		}
		return fmt.Errorf("%w: failed to open cache file '%s': %w", ErrCacheLoad, cachePath, err)
	}
	defer file.Close()

	var header CacheFileHeader
	var loaded map[string]CacheEntry
	if c.format == CacheFormatJSON {
		var data jsonCacheFile
		err = json.NewDecoder(file).Decode(&data)
		header, loaded = data.Header, data.Index
	} else {
		dec := gob.NewDecoder(file)
		if err = dec.Decode(&header); err == nil {
			err = dec.Decode(&loaded)
		}
	}
	if err != nil {
		c.logger.Warn("Cache file unreadable, treating as empty", "path", cachePath, "error", err.Error())
		return nil
	}

	if header.SchemaVersion != c.schemaVersion {
		c.logger.Warn("Cache schema version mismatch, invalidating cache",
			"path", cachePath, "file_schema", header.SchemaVersion, "expected_schema", c.schemaVersion)
		return nil
	}
	if header.ToolVersion != c.toolVersion && header.ToolVersion != "dev" && c.toolVersion != "dev" {
		c.logger.Warn("Cache tool version mismatch, invalidating cache",
			"path", cachePath, "file_version", header.ToolVersion, "expected_version", c.toolVersion)
		return nil
	}

	if loaded != nil {
		c.index = loaded
	}
	c.logger.Info("Cache loaded", "path", cachePath, "entries", len(c.index))
	return nil
}

// Check implements CacheManager. A hit means the file is byte-identical to
// what the last run left behind under the same settings.
func (c *fileCacheManager) Check(filePath string, modTime time.Time, contentHash string, settingsHash string) bool {
	c.mu.RLock()
	entry, found := c.index[filePath]
	c.mu.RUnlock()

	switch {
	case !found:
		c.logger.Debug("Cache check: miss (no entry)", "path", filePath)
		return false
	case !entry.ModTime.Equal(modTime):
		c.logger.Debug("Cache check: miss (modTime)", "path", filePath)
		return false
	case entry.ContentHash != contentHash:
		c.logger.Debug("Cache check: miss (content)", "path", filePath)
		return false
	case entry.SettingsHash != settingsHash:
		c.logger.Debug("Cache check: miss (settings)", "path", filePath)
		return false
	}
	c.logger.Debug("Cache check: hit", "path", filePath)
	return true
}

// Update implements CacheManager.
func (c *fileCacheManager) Update(filePath string, entry CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[filePath] = entry
	return nil
}

// Persist implements CacheManager. The index is written to a temporary file
// and renamed over cachePath.
func (c *fileCacheManager) Persist(cachePath string) error {
	c.mu.RLock()
	index := maps.Clone(c.index)
	c.mu.RUnlock()

	if len(index) == 0 {
		if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to remove empty cache file", "path", cachePath, "error", err.Error())
		}
		return nil
	}

	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create cache directory '%s': %w", ErrCachePersist, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(cachePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary cache file in '%s': %w", ErrCachePersist, dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	header := CacheFileHeader{SchemaVersion: c.schemaVersion, ToolVersion: c.toolVersion}
	var encodeErr error
	if c.format == CacheFormatJSON {
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		encodeErr = enc.Encode(jsonCacheFile{Header: header, Index: index})
	} else {
		enc := gob.NewEncoder(tmp)
		if encodeErr = enc.Encode(header); encodeErr == nil {
			encodeErr = enc.Encode(index)
		}
	}
	closeErr := tmp.Close()
	if encodeErr != nil {
		return fmt.Errorf("%w: failed to encode cache (%s): %w", ErrCachePersist, c.format, encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: failed to close temporary cache file '%s': %w", ErrCachePersist, tmpPath, closeErr)
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		return fmt.Errorf("%w: failed to rename '%s' to '%s': %w", ErrCachePersist, tmpPath, cachePath, err)
	}
	c.logger.Info("Cache persisted", "path", cachePath, "entries", len(index))
	return nil
}
