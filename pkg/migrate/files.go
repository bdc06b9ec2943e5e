package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

const (
	markerUp    = "-- +goose Up"
	markerDown  = "-- +goose Down"
	markerBegin = "-- +goose StatementBegin"
	markerEnd   = "-- +goose StatementEnd"
)

var (
	fileNameRe   = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeNameRe = regexp.MustCompile(`[^a-z0-9]+`)
)

type migrationFile struct {
	version int64
	name    string
	path    string
}

// listMigrations returns the .sql files in dir ordered by version. Files that do
// not follow the YYYYMMDDHHMMSS_name.sql layout are an error.
func listMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		m := fileNameRe.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", entry.Name())
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		files = append(files, migrationFile{version: version, name: m[2], path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

func sanitizeName(name string) string {
	safe := unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(safe, "_")
}

// CreateSQLMigration writes an empty goose migration into dir and returns its
// path. The version is the current UTC time, bumped past the newest existing
// file so two migrations created in the same second still sort correctly.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := sanitizeName(name)
	if safe == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := listMigrations(dir)
	if err != nil {
		return "", err
	}
	version, _ := strconv.ParseInt(time.Now().UTC().Format(versionLayout), 10, 64)
	if n := len(existing); n > 0 && existing[n-1].version >= version {
		version = existing[n-1].version + 1
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, safe))
	body := strings.Join([]string{
		markerUp,
		markerBegin,
		"-- " + safe + " (Postgres only; sqlite schemas come from the gorm models)",
		markerEnd,
		"",
		markerDown,
		markerBegin,
		"-- rollback " + safe,
		markerEnd,
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

// ValidateDir checks names, version uniqueness and goose markers of every
// migration in dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	files, err := listMigrations(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	for i, file := range files {
		if i > 0 && files[i-1].version == file.version {
			return fmt.Errorf("duplicate migration version %d in %q and %q", file.version, files[i-1].path, file.path)
		}
		data, err := os.ReadFile(file.path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", file.path, err)
		}
		if err := checkMarkers(string(data)); err != nil {
			return fmt.Errorf("migration %q: %w", filepath.Base(file.path), err)
		}
	}
	return nil
}

func checkMarkers(sql string) error {
	up := strings.Index(sql, markerUp)
	down := strings.Index(sql, markerDown)
	switch {
	case up < 0:
		return fmt.Errorf("missing %q", markerUp)
	case down < 0:
		return fmt.Errorf("missing %q", markerDown)
	case down < up:
		return fmt.Errorf("%q must come before %q", markerUp, markerDown)
	}
	if strings.Count(sql, markerBegin) != strings.Count(sql, markerEnd) {
		return fmt.Errorf("unbalanced statement markers")
	}
	return nil
}
