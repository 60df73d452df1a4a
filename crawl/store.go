package crawl

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LinkStore is an ordered list of URLs persisted one per line.
// Appends never check for duplicates; Dedup and Canonicalize run as
// separate full rewrites. Only one stage may use a store at a time.
type LinkStore struct {
	Path string
}

// Load reads every non-blank line, trimmed. A missing file is an empty store.
func (s LinkStore) Load() ([]string, error) {
	links, err := ReadURLs(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return links, err
}

// storeMode is the permission of store files, whether appended or rewritten.
const storeMode fs.FileMode = 0o644

// Append adds links to the end of the store, creating it if needed.
func (s LinkStore) Append(links []string) error {
	if len(links) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, storeMode)
	if err != nil {
		return fmt.Errorf("opening link store %s: %w", s.Path, err)
	}

	if _, err := f.WriteString(strings.Join(links, "\n") + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("appending to link store %s: %w", s.Path, err)
	}
	return f.Close()
}

// Rewrite replaces the store's contents with links. The new contents are
// written to a temporary file and renamed over the old one; the result
// has storeMode permissions.
func (s LinkStore) Rewrite(links []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", s.Path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, l := range links {
		if _, err := w.WriteString(l + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("writing %s: %w", tmp.Name(), err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(storeMode); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode of %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing link store %s: %w", s.Path, err)
	}
	return nil
}

// PassStats reports store sizes around a canonicalization run.
type PassStats struct {
	Loaded        int
	AfterDedup    int
	AfterFilter   int
	FilterApplied bool
}

// CanonicalizeStore deduplicates the store and, if filter is set, keeps
// only links satisfying rule. Each pass is a full read-modify-rewrite.
func CanonicalizeStore(s LinkStore, rule CanonicalRule, filter bool) (PassStats, error) {
	var stats PassStats

	links, err := s.Load()
	if err != nil {
		return stats, err
	}
	stats.Loaded = len(links)

	links = Dedup(links)
	if err := s.Rewrite(links); err != nil {
		return stats, err
	}
	stats.AfterDedup = len(links)
	stats.AfterFilter = len(links)

	if !filter {
		return stats, nil
	}

	links, err = s.Load()
	if err != nil {
		return stats, err
	}
	links = Canonicalize(links, rule)
	if err := s.Rewrite(links); err != nil {
		return stats, err
	}
	stats.AfterFilter = len(links)
	stats.FilterApplied = true
	return stats, nil
}

// ReadURLs reads a one-URL-per-line file, skipping blank lines.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return urls, nil
}
