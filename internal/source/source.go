// Package source supplies source lines for failure snippets.
package source

import (
	"bufio"
	"os"
	"sync"
)

// FileCache reads source files from disk and caches their lines.
// Missing or unreadable files are cached as absent so they are read at
// most once per cache lifetime.
//
// Thread-safety: FileCache is safe for concurrent use via internal mutex.
type FileCache struct {
	mu    sync.Mutex
	files map[string][]string
	errs  map[string]error
}

// NewFileCache creates an empty cache.
func NewFileCache() *FileCache {
	return &FileCache{
		files: make(map[string][]string),
		errs:  make(map[string]error),
	}
}

// Lines returns the lines of file without trailing newlines.
func (c *FileCache) Lines(file string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lines, ok := c.files[file]; ok {
		return lines, nil
	}
	if err, ok := c.errs[file]; ok {
		return nil, err
	}

	lines, err := readLines(file)
	if err != nil {
		c.errs[file] = err
		return nil, err
	}
	c.files[file] = lines
	return lines, nil
}

// Reset drops every cached file.
func (c *FileCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string][]string)
	c.errs = make(map[string]error)
}

func readLines(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Static serves fixed contents, keyed by file name.
type Static map[string][]string

// Lines returns the registered lines, or os.ErrNotExist.
func (s Static) Lines(file string) ([]string, error) {
	lines, ok := s[file]
	if !ok {
		return nil, os.ErrNotExist
	}
	return lines, nil
}
