package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantErr        bool
		expectedOutput string
	}{
		{
			name:           "root command without args shows help",
			args:           []string{},
			expectedOutput: "Meeting Recorder API",
		},
		{
			name:           "root command with --help",
			args:           []string{"--help"},
			expectedOutput: "Available Commands:",
		},
		{
			name:           "serve help lists worker flag",
			args:           []string{"serve", "--help"},
			expectedOutput: "--with-workers",
		},
		{
			name:           "worker help",
			args:           []string{"worker", "--help"},
			expectedOutput: "Run the transcription worker pool",
		},
		{
			name:    "root command with invalid flag",
			args:    []string{"--invalid-flag"},
			wantErr: true,
		},
		{
			name:    "serve with invalid port",
			args:    []string{"serve", "--port", "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Contains(t, buf.String(), tt.expectedOutput)
		})
	}
}

func TestSkipsConfig(t *testing.T) {
	assert.True(t, skipsConfig(versionCmd))
	assert.True(t, skipsConfig(&cobra.Command{Use: "help"}))
	assert.False(t, skipsConfig(serveCmd))
	assert.False(t, skipsConfig(migrateStatusCmd))
}
