package eop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoCacheFiles is returned by LoadLatest when nothing has been cached yet.
var ErrNoCacheFiles = errors.New("no cache files found")

// Cache manages EOP files on disk, one rolling set per model.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most
// maxFiles per model.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Write saves data to a timestamped file and prunes old files beyond maxFiles.
func (c *Cache) Write(m Model, data []byte, ts time.Time) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	path := filepath.Join(c.dir, fmt.Sprintf("%s%d.csv", prefix(m), ts.Unix()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing cache file: %w", err)
	}

	return path, c.prune(m)
}

// LoadLatest reads the newest cache file for the model.
func (c *Cache) LoadLatest(m Model) ([]byte, time.Time, error) {
	files, err := c.listFiles(m)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w for %s in %s", ErrNoCacheFiles, m, c.dir)
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, latest.ts, nil
}

type cacheFile struct {
	name string
	ts   time.Time
}

func prefix(m Model) string {
	return "eop_" + m.String() + "_"
}

// listFiles returns the model's cache files, oldest first.
func (c *Cache) listFiles(m Model) ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	p := prefix(m)
	var files []cacheFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, p) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		unix, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, p), ".csv"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})
	return files, nil
}

func (c *Cache) prune(m Model) error {
	files, err := c.listFiles(m)
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}
	return nil
}
