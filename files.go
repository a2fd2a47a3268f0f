package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yargevad/filepathx"
	"go.uber.org/zap"
)

// expandInputs resolves globs (with ** support) and plain paths into a list
// of files, in argument order and without repeats. Dotfiles are skipped; the
// normalizer's own lock and temp files are dotfiles.
func expandInputs(patterns []string, log *zap.Logger) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	for _, pattern := range patterns {
		matches := []string{pattern}

		if strings.ContainsAny(pattern, "*?[") {
			var err error
			matches, err = filepathx.Glob(pattern)
			if err != nil {
				return nil, err
			}
			sort.Strings(matches)
			log.Debug("expanded glob", zap.String("pattern", pattern), zap.Int("matches", len(matches)))
		}

		for _, file := range matches {
			if strings.HasPrefix(filepath.Base(file), ".") {
				log.Debug("skipping dotfile", zap.String("file", file))
				continue
			}
			if seen[file] {
				continue
			}
			if fi, err := os.Stat(file); err == nil && fi.IsDir() {
				continue
			}
			seen[file] = true
			files = append(files, file)
		}
	}

	return files, nil
}

func isXISF(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ".xisf")
}
