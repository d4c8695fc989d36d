// Package backup makes timestamped copies of the standalone data files
// and prunes old copies by age.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
)

// Nanosecond precision keeps names unique for back-to-back backups.
const timestampLayout = "20060102-150405.000000000"

// Manager copies data files into a backup directory and retires copies
// older than the configured retention window.
type Manager struct {
	dir        string
	daysToKeep int
	log        *logrus.Logger
}

// Info describes one backup file.
type Info struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// NewManager creates a backup manager.
func NewManager(cfg domain.BackupConfig, logger *logrus.Logger) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	daysToKeep := cfg.DaysToKeep
	if daysToKeep <= 0 {
		daysToKeep = 30
	}

	return &Manager{
		dir:        cfg.Dir,
		daysToKeep: daysToKeep,
		log:        logger,
	}, nil
}

// Backup copies each source file into the backup directory under a
// timestamped name and returns the paths written. Missing sources are
// skipped.
func (m *Manager) Backup(sources ...string) ([]string, error) {
	stamp := time.Now().UTC().Format(timestampLayout)

	var written []string
	for _, src := range sources {
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			m.log.WithField("source", src).Debug("Backup source missing, skipping")
			continue
		}
		if err != nil {
			return written, fmt.Errorf("stating %s: %w", src, err)
		}
		if info.IsDir() {
			return written, fmt.Errorf("backup source %s is a directory", src)
		}

		dest := filepath.Join(m.dir, fmt.Sprintf("%s.%s.bak", filepath.Base(src), stamp))
		if err := copyFile(src, dest); err != nil {
			return written, fmt.Errorf("backing up %s: %w", src, err)
		}
		written = append(written, dest)

		m.log.WithFields(logrus.Fields{
			"source": src,
			"backup": dest,
			"bytes":  info.Size(),
		}).Info("Backup written")
	}

	return written, nil
}

// Prune deletes backups older than the retention window and returns how
// many were removed.
func (m *Manager) Prune() (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -m.daysToKeep)

	backups, err := m.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range backups {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", b.Path, err)
		}
		removed++
	}

	if removed > 0 {
		m.log.WithFields(logrus.Fields{
			"removed":      removed,
			"days_to_keep": m.daysToKeep,
		}).Info("Old backups pruned")
	}
	return removed, nil
}

// List returns the backups in the directory, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".bak" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
