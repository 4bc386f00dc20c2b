package migration

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// DefaultExtension is the only script suffix recognized unless overridden.
const DefaultExtension = "sql"

// filenamePattern matches migration files named
//
//	V{version}__{description}.{extension}   (e.g., V1_1__create_users.sql)
//
// where version is one or more digit groups separated by "." or "_".
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by ParseName
	`^[Vv](\d+(?:[._]\d+)*)__(.+)\.([A-Za-z0-9]+)$`,
)

// ScanOption configures LoadFromDir.
type ScanOption func(*scanner)

type scanner struct {
	extensions map[string]struct{}
}

// WithExtensions replaces the set of accepted file extensions (without dots).
func WithExtensions(exts ...string) ScanOption {
	return func(s *scanner) {
		s.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			s.extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
		}
	}
}

// ParseName extracts the normalized version and the extension from a
// migration file name. ok is false when the name does not follow the
// naming convention.
func ParseName(name string) (version, extension string, ok bool) {
	matches := filenamePattern.FindStringSubmatch(name)
	if matches == nil {
		return "", "", false
	}

	return strings.ReplaceAll(matches[1], "_", "."), matches[3], true
}

func newScanner(opts []ScanOption) *scanner {
	s := &scanner{}
	WithExtensions(DefaultExtension)(s)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *scanner) match(name string) (version, extension string, ok bool) {
	version, extension, ok = ParseName(name)
	if !ok {
		return "", "", false
	}

	if _, accepted := s.extensions[strings.ToLower(extension)]; !accepted {
		return "", "", false
	}

	return version, extension, true
}

// Match reports whether LoadFromDir would pick up a file called name under
// the same options, and returns its version and extension if so.
func Match(name string, opts ...ScanOption) (version, extension string, ok bool) {
	return newScanner(opts).match(name)
}

// LoadFromDir scans dir for migration files and returns them sorted by
// version. Files that do not match the naming convention are skipped.
func LoadFromDir(fsys vfs.FileSystem, dir string, opts ...ScanOption) ([]Migration, error) {
	s := newScanner(opts)

	entries, err := vfs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var migrations []Migration

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, ext, ok := s.match(entry.Name())
		if !ok {
			continue
		}

		m, err := readMigration(fsys, dir, entry.Name(), version, ext)
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	sorted := Sort(migrations)

	if err := checkDuplicates(sorted); err != nil {
		return nil, err
	}

	return sorted, nil
}

// readMigration reads a script and builds its descriptor.
func readMigration(fsys vfs.FileSystem, dir, name, version, ext string) (Migration, error) {
	path := filepath.Join(dir, name)

	data, err := vfs.ReadFile(fsys, path)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	return Migration{
		Version:   version,
		Extension: ext,
		Name:      name,
		Checksum:  ComputeChecksum(data),
	}, nil
}

// checkDuplicates expects a sorted slice; equal versions end up adjacent.
func checkDuplicates(sorted []Migration) error {
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if CompareVersions(prev.Version, cur.Version) == 0 {
			return fmt.Errorf("%w: %s and %s both resolve to version %s",
				ErrDuplicateVersion, prev.Name, cur.Name, cur.Version)
		}
	}

	return nil
}

// CheckVersionFree fails when another migration in existing already uses
// m's version.
func CheckVersionFree(m Migration, existing []Migration) error {
	for _, e := range existing {
		if e.Name != m.Name && CompareVersions(e.Version, m.Version) == 0 {
			return fmt.Errorf("%w: %s and %s both resolve to version %s",
				ErrDuplicateVersion, e.Name, m.Name, m.Version)
		}
	}

	return nil
}
