package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logapi/internal/config"
	"logapi/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDatabaseSQLiteAutoMigrates(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:bootstrap_%d?mode=memory&cache=shared", time.Now().UnixNano()),
	}
	db, err := OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable("users"))
	assert.True(t, db.Migrator().HasTable("logs"))
	assert.True(t, db.Migrator().HasIndex("logs", "ix_logs_ts_sev_src"))
}

func TestArtifactStoreSelection(t *testing.T) {
	store, err := ArtifactStore(context.Background(), config.ExportConfig{Storage: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &export.LocalStore{}, store)

	_, err = ArtifactStore(context.Background(), config.ExportConfig{Storage: "ftp"})
	assert.Error(t, err)
}

func TestResolveEnvPathFindsParentDotEnv(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("X=1\n"), 0o644))

	t.Chdir(nested)
	assert.Equal(t, filepath.Join(root, ".env"), resolveEnvPath())
}
