package beanquery

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var includeRe = regexp.MustCompile(`^include\s+"([^"]+)"`)

// IncludedFiles returns path followed by every file it includes,
// recursively. Include paths are relative to the including file and may be
// glob patterns. Includes that match nothing are skipped.
func IncludedFiles(path string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	var visit func(string) error
	visit = func(p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if seen[abs] {
			return nil
		}
		seen[abs] = true
		files = append(files, abs)

		includes, err := readIncludes(abs)
		if err != nil {
			return err
		}
		for _, inc := range includes {
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(abs), inc)
			}
			matches, err := filepath.Glob(inc)
			if err != nil {
				return fmt.Errorf("include %q in %s: %w", inc, abs, err)
			}
			for _, m := range matches {
				if err := visit(m); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := visit(path); err != nil {
		return nil, err
	}
	return files, nil
}

func readIncludes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if m := includeRe.FindStringSubmatch(sc.Text()); m != nil {
			out = append(out, m[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

// newestModTime returns the latest modification time over files.
func newestModTime(files []string) (time.Time, error) {
	var newest time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return time.Time{}, fmt.Errorf("stat %s: %w", f, err)
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}
