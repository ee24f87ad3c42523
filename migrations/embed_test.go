package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFS_ContainsGooseMigrations(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, n := range names {
		body, err := fs.ReadFile(FS, n)
		require.NoError(t, err)
		require.Contains(t, string(body), "-- +goose Up", n)
		require.Contains(t, string(body), "-- +goose Down", n)
	}

	schema, err := fs.ReadFile(FS, "00001_init.sql")
	require.NoError(t, err)
	for _, table := range []string{"flights", "passengers", "bags", "staff", "administrators", "messages", "issues", "sessions", "login_attempts"} {
		require.True(t, strings.Contains(string(schema), "CREATE TABLE "+table+" ("), table)
	}
}
