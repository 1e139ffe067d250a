package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/royalty/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestApplyAutoMigratesSQLite(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, Apply(conn))

	for _, table := range []string{
		"royalty_contracts", "royalty_tiers", "advance_ledger_entries",
		"sales", "sale_returns", "title_authors", "statements",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
