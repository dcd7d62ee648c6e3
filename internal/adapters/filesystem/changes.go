// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// skipDirs are never walked by the mtime fallback.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".agentco":     true,
}

type fileStat struct {
	modTime int64
	size    int64
}

type gitSnapshot struct {
	entries map[string]string // path -> porcelain XY code
	stats   map[string]fileStat
}

type walkSnapshot struct {
	stats map[string]fileStat
}

// ChangeDetector implements secondary.ChangeDetector. Inside a git work
// tree it diffs "git status --porcelain" output, so ignored files never
// show up; elsewhere it diffs a walk of file modification times.
type ChangeDetector struct {
	gitCommand string
}

// NewChangeDetector creates a change detector using the git on PATH.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{gitCommand: "git"}
}

// Snapshot records the state of dir.
func (d *ChangeDetector) Snapshot(ctx context.Context, dir string) (secondary.ChangeSnapshot, error) {
	if entries, err := d.porcelain(ctx, dir); err == nil {
		return &gitSnapshot{entries: entries, stats: statAll(dir, entries)}, nil
	}
	stats, err := walk(dir)
	if err != nil {
		return nil, err
	}
	return &walkSnapshot{stats: stats}, nil
}

// Changed lists paths, relative to dir and sorted, that were added,
// modified or removed since before.
func (d *ChangeDetector) Changed(ctx context.Context, dir string, before secondary.ChangeSnapshot) ([]string, error) {
	switch snap := before.(type) {
	case *gitSnapshot:
		after, err := d.porcelain(ctx, dir)
		if err != nil {
			return nil, err
		}
		afterStats := statAll(dir, after)
		changed := make(map[string]bool)
		for path, code := range after {
			prev, existed := snap.entries[path]
			if !existed || prev != code || snap.stats[path] != afterStats[path] {
				changed[path] = true
			}
		}
		for path := range snap.entries {
			if _, still := after[path]; !still {
				changed[path] = true
			}
		}
		return sortedKeys(changed), nil

	case *walkSnapshot:
		after, err := walk(dir)
		if err != nil {
			return nil, err
		}
		changed := make(map[string]bool)
		for path, st := range after {
			if prev, ok := snap.stats[path]; !ok || prev != st {
				changed[path] = true
			}
		}
		for path := range snap.stats {
			if _, ok := after[path]; !ok {
				changed[path] = true
			}
		}
		return sortedKeys(changed), nil
	}
	return nil, fmt.Errorf("unsupported snapshot type %T", before)
}

// porcelain lists the status of dir and below, keyed by path relative to
// dir. git reports paths from the repository root, so the prefix of dir
// inside the repository is stripped.
func (d *ChangeDetector) porcelain(ctx context.Context, dir string) (map[string]string, error) {
	prefix, err := d.git(ctx, dir, "rev-parse", "--show-prefix")
	if err != nil {
		return nil, err
	}
	out, err := d.git(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all", "--", ".")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out, strings.TrimSpace(string(prefix))), nil
}

func (d *ChangeDetector) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.gitCommand, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return out, nil
}

// parsePorcelain reads NUL-separated "XY path" records. Renames and copies
// carry a second record with the original path, which is skipped. Paths
// outside prefix are dropped and the rest are made relative to it.
func parsePorcelain(out []byte, prefix string) map[string]string {
	entries := make(map[string]string)
	records := bytes.Split(out, []byte{0})
	for i := 0; i < len(records); i++ {
		rec := string(records[i])
		if len(rec) < 4 {
			continue
		}
		code, path := rec[:2], rec[3:]
		if code[0] == 'R' || code[0] == 'C' {
			i++
		}
		rel, ok := strings.CutPrefix(path, prefix)
		if !ok || rel == "" {
			continue
		}
		entries[rel] = code
	}
	return entries
}

func statAll(dir string, entries map[string]string) map[string]fileStat {
	stats := make(map[string]fileStat, len(entries))
	for path := range entries {
		if info, err := os.Stat(filepath.Join(dir, path)); err == nil {
			stats[path] = fileStat{modTime: info.ModTime().UnixNano(), size: info.Size()}
		}
	}
	return stats
}

func walk(dir string) (map[string]fileStat, error) {
	stats := make(map[string]fileStat)
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != dir && skipDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		stats[filepath.ToSlash(rel)] = fileStat{modTime: info.ModTime().UnixNano(), size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return stats, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, strings.TrimSuffix(k, "/"))
	}
	sort.Strings(out)
	return out
}
