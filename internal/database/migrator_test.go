package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/pkg/config"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_b.up.sql":   {Data: []byte("SELECT 2;")},
		"sql/0001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/0001_a.down.sql": {Data: []byte("SELECT 0;")},
		"sql/README.md":       {Data: []byte("docs")},
		"sql/nested/x.up.sql": {Data: []byte("SELECT 3;")},
	}

	names, err := ListMigrations(fsys, "sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, names)

	_, err = ListMigrations(fsys, "missing")
	assert.Error(t, err)
}

func TestBundledMigrations(t *testing.T) {
	names, err := ListMigrations(Migrations, migrationsRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users.up.sql", "0002_submissions.up.sql"}, names)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{})
	assert.Error(t, err)
}
