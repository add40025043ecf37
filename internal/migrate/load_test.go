package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadScripts(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_email.sql": {Data: []byte("ALTER TABLE accounts ADD COLUMN email text")},
		"0001_init.sql":      {Data: []byte("CREATE TABLE accounts (id integer)")},
		"README.md":          {Data: []byte("not a migration")},
	}

	scripts, err := LoadScripts(fsys)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	require.Equal(t, "0001_init", scripts[0].ID)
	require.Equal(t, "init", scripts[0].Description)
	require.Equal(t, "0002_add_email", scripts[1].ID)
	require.Equal(t, "add email", scripts[1].Description)
	require.Equal(t, Checksum("CREATE TABLE accounts (id integer)"), scripts[0].Checksum)
}

func TestLoadScriptsRejectsBadNames(t *testing.T) {
	_, err := LoadScripts(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1")}})
	require.Error(t, err)

	_, err = LoadScripts(fstest.MapFS{"abc_init.sql": {Data: []byte("SELECT 1")}})
	require.Error(t, err)
}

func TestChecksumStable(t *testing.T) {
	a := Checksum("CREATE TABLE a (id integer)")
	b := Checksum("CREATE TABLE a (id integer)")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
	require.NotEqual(t, a, Checksum("CREATE TABLE a (id integer, x text)"))
}

func TestSortScripts(t *testing.T) {
	scripts := []Script{{ID: "0010_z"}, {ID: "0002_b"}, {ID: "0001_a"}}
	SortScripts(scripts)
	require.Equal(t, "0001_a", scripts[0].ID)
	require.Equal(t, "0002_b", scripts[1].ID)
	require.Equal(t, "0010_z", scripts[2].ID)
}
