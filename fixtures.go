package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Fixture is one SQL file loaded into the sandbox database.
type Fixture struct {
	Name string
	File string
}

// ParseFixtures returns every *.sql file under dir sorted by name. Files
// ending in .down.sql are rollbacks and are skipped; a .up.sql suffix is
// dropped from the name.
func ParseFixtures(dir string) ([]Fixture, error) {
	slog.Debug("scanning fixture directory", "directory", dir)

	var fixtures []Fixture
	skipped := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fileName := d.Name()
		switch {
		case strings.HasSuffix(fileName, ".down.sql"):
			skipped++
			slog.Debug("skipping down file", "file", path)
		case strings.HasSuffix(fileName, ".up.sql"):
			fixtures = append(fixtures, Fixture{Name: strings.TrimSuffix(fileName, ".up.sql"), File: path})
		case strings.HasSuffix(fileName, ".sql"):
			fixtures = append(fixtures, Fixture{Name: strings.TrimSuffix(fileName, ".sql"), File: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk fixture directory: %w", err)
	}

	sort.Slice(fixtures, func(i, j int) bool {
		return fixtures[i].Name < fixtures[j].Name
	})

	slog.Info("parsed fixtures", "count", len(fixtures), "skipped", skipped)
	return fixtures, nil
}
