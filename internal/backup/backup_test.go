package backup

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympdx-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	manager, err := NewManager(domain.BackupConfig{
		Dir:        filepath.Join(dir, "backups"),
		DaysToKeep: 7,
	}, testLogger())
	require.NoError(t, err)
	return manager, dir
}

func TestManager_BackupCopiesFiles(t *testing.T) {
	manager, dir := newTestManager(t)

	source := filepath.Join(dir, "sympdx.db")
	require.NoError(t, os.WriteFile(source, []byte("database bytes"), 0644))

	written, err := manager.Backup(source)
	require.NoError(t, err)
	require.Len(t, written, 1)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "database bytes", string(data))
	assert.Contains(t, filepath.Base(written[0]), "sympdx.db.")
	assert.Equal(t, ".bak", filepath.Ext(written[0]))
}

func TestManager_BackupSkipsMissingSources(t *testing.T) {
	manager, dir := newTestManager(t)

	present := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(present, []byte("{}"), 0644))

	written, err := manager.Backup(filepath.Join(dir, "absent.db"), present)
	require.NoError(t, err)
	assert.Len(t, written, 1)
}

func TestManager_BackupRejectsDirectories(t *testing.T) {
	manager, dir := newTestManager(t)

	_, err := manager.Backup(dir)
	require.Error(t, err)
}

func TestManager_ListNewestFirst(t *testing.T) {
	manager, dir := newTestManager(t)

	source := filepath.Join(dir, "sympdx.db")
	require.NoError(t, os.WriteFile(source, []byte("v1"), 0644))

	first, err := manager.Backup(source)
	require.NoError(t, err)

	// Age the first copy so ordering does not depend on sub-second mtimes.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(first[0], old, old))

	second, err := manager.Backup(source)
	require.NoError(t, err)

	backups, err := manager.List()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, second[0], backups[0].Path)
	assert.Equal(t, first[0], backups[1].Path)
}

func TestManager_PruneRemovesOldCopies(t *testing.T) {
	manager, dir := newTestManager(t)

	source := filepath.Join(dir, "sympdx.db")
	require.NoError(t, os.WriteFile(source, []byte("v1"), 0644))

	stale, err := manager.Backup(source)
	require.NoError(t, err)
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale[0], old, old))

	fresh, err := manager.Backup(source)
	require.NoError(t, err)

	removed, err := manager.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	backups, err := manager.List()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, fresh[0], backups[0].Path)
}

func TestNewManager_RequiresDir(t *testing.T) {
	_, err := NewManager(domain.BackupConfig{}, testLogger())
	require.Error(t, err)
}
