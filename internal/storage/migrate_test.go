package storage

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INTEGER);\n", ExtractUpMigration(content))

	assert.Equal(t, "SELECT 1;", ExtractUpMigration("SELECT 1;"), "no markers keeps the whole file")
	assert.Equal(t, "\nSELECT 2;", ExtractUpMigration("-- +migrate Up\nSELECT 2;"))
}

func TestLoadMigrations_SortsAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":  {Data: []byte("-- +migrate Up\nSELECT 2;\n")},
		"001_a.sql":  {Data: []byte("-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 0;\n")},
		"003_c.sql":  {Data: []byte("-- +migrate Up\n   \n-- +migrate Down\nSELECT 0;\n")},
		"README.txt": {Data: []byte("not a migration")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001_a.sql", migrations[0].Name)
	assert.Equal(t, "002_b.sql", migrations[1].Name)
	assert.Contains(t, migrations[0].Up, "SELECT 1;")
	assert.NotContains(t, migrations[0].Up, "SELECT 0;")
}
