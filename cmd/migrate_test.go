package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestConfig(t *testing.T) {
	t.Helper()
	orig := appConfig
	appConfig = &config.Config{Database: config.DatabaseConfig{
		Driver:            database.DriverSQLite,
		Path:              filepath.Join(t.TempDir(), "recorder.db"),
		EnableForeignKeys: true,
	}}
	t.Cleanup(func() { appConfig = orig })
}

func newMigrateCmd(dryRun bool) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("dry-run", dryRun, "")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	return cmd, buf
}

func TestMigrateHelp(t *testing.T) {
	tests := []struct {
		args           []string
		expectedOutput string
	}{
		{[]string{"migrate", "--help"}, "Manage the database schema"},
		{[]string{"migrate", "up", "--help"}, "Create missing tables"},
		{[]string{"migrate", "status", "--help"}, "Display the current status"},
	}

	for _, tt := range tests {
		t.Run(tt.args[len(tt.args)-2], func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Contains(t, buf.String(), tt.expectedOutput)
		})
	}
}

func TestMigrateUpAndStatus(t *testing.T) {
	withTestConfig(t)

	cmd, buf := newMigrateCmd(false)
	require.NoError(t, runMigrateStatus(cmd, nil))
	assert.Contains(t, buf.String(), "Missing tables:")
	assert.Contains(t, buf.String(), "recordings")

	cmd, buf = newMigrateCmd(true)
	require.NoError(t, runMigrateUp(cmd, nil))
	assert.Contains(t, buf.String(), "Dry run mode")
	assert.Contains(t, buf.String(), "Missing tables:")

	cmd, buf = newMigrateCmd(false)
	require.NoError(t, runMigrateUp(cmd, nil))
	assert.Contains(t, buf.String(), "Migrated")

	cmd, buf = newMigrateCmd(false)
	require.NoError(t, runMigrateStatus(cmd, nil))
	assert.Contains(t, buf.String(), "Schema is up to date")
}
