// Package migrate upgrades versioned on-disk files one schema version at a
// time. Each file kind owns a [Registry]; coverkit versions only its config.
package migrate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrNewerVersion is returned for data written by a newer schema than the
// registry knows.
var ErrNewerVersion = errors.New("schema version is newer than supported")

// Migration upgrades data from the previous version to Version.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short label for log output.
	Description string
	// Upgrade transforms data from the prior version to Version.
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the current version and the migrations of one file kind.
type Registry struct {
	// CurrentVersion is the version files are upgraded to.
	CurrentVersion int
	// Migrations is exported so tests can swap the list.
	Migrations []Migration
}

// Config is the registry for config.toml.
var Config = &Registry{CurrentVersion: 1}

// Register adds m. It panics on a duplicate version.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether a file at fileVersion must be rewritten.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	if fileVersion != r.CurrentVersion {
		return true
	}
	for _, m := range r.Migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// Upgrade brings data from fromVersion to the current version. Data newer
// than the current version is rejected with [ErrNewerVersion].
func (r *Registry) Upgrade(data []byte, fromVersion int) ([]byte, error) {
	if fromVersion > r.CurrentVersion {
		return nil, fmt.Errorf("%w: file v%d, supported v%d", ErrNewerVersion, fromVersion, r.CurrentVersion)
	}
	out, _, err := Run(data, fromVersion, r.Migrations)
	return out, err
}

// Run applies migrations in version order where fromVersion < m.Version.
// It returns the transformed data and the last version reached.
func Run(data []byte, fromVersion int, migrations []Migration) ([]byte, int, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)
		var err error
		data, err = m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		version = m.Version
	}
	return data, version, nil
}
