// Package backup manages the transient per-entity JSON backups written
// before deletion and their final compressed archive.
package backup

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bgilleran-port/port-tsm-scripts/internal/port"
)

// ArchiveSuffix is appended to the formatted run date to name the archive.
const ArchiveSuffix = "_deleted_users.zip"

// Store is the working directory holding one JSON file per backed-up entity
// during a single run.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a Store rooted at dir. The directory is not created until
// Ensure is called, so a run with no candidates leaves no trace on disk.
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Dir returns the working directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Ensure creates the working directory if it does not exist.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	return nil
}

// Write persists the entity's full original JSON, indented, to
// {dir}/{identifier}.json and returns the file path.
func (s *Store) Write(e *port.Entity) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, e.Raw, "", "  "); err != nil {
		return "", fmt.Errorf("formatting backup for %s: %w", e.Identifier, err)
	}

	path := filepath.Join(s.dir, e.Identifier+".json")
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing backup for %s: %w", e.Identifier, err)
	}
	return path, nil
}

// Remove deletes the backup file for an entity whose remote delete failed, so
// no backup survives for an entity that is still live.
func (s *Store) Remove(identifier string) error {
	path := filepath.Join(s.dir, identifier+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing backup for %s: %w", identifier, err)
	}
	return nil
}

// Archive bundles every .json backup in the working directory into one
// deflate-compressed zip at zipPath, flattened with no directory prefix.
func (s *Store) Archive(zipPath string) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("listing backup directory: %w", err)
	}

	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := s.addToArchive(zw, entry.Name()); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}

	s.logger.Info().Str("archive", zipPath).Msg("backup archive created")
	return nil
}

func (s *Store) addToArchive(zw *zip.Writer, name string) error {
	src, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("opening backup %s: %w", name, err)
	}
	defer src.Close()

	// Create uses deflate and stores the bare name, flattening the layout.
	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	return nil
}

// Cleanup removes the working directory and anything left in it. A missing
// directory is not an error.
func (s *Store) Cleanup() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing backup directory: %w", err)
	}
	return nil
}

// ArchiveName returns the deterministic archive filename for a run date:
// MM-DD-YYYY followed by the fixed suffix.
func ArchiveName(now time.Time) string {
	return now.Format("01-02-2006") + ArchiveSuffix
}
