package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func memoryConfig() config.DatabaseConfig {
	return config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:", EnableForeignKeys: true}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr bool
	}{
		{
			name: "in-memory database",
			cfg:  memoryConfig(),
		},
		{
			name: "file database with WAL",
			cfg: config.DatabaseConfig{
				Driver:            DriverSQLite,
				Path:              filepath.Join(t.TempDir(), "nested", "test.db"),
				EnableWAL:         true,
				EnableForeignKeys: true,
			},
		},
		{
			name: "empty path falls back to memory",
			cfg:  config.DatabaseConfig{Driver: DriverSQLite},
		},
		{
			name:    "postgres without dsn",
			cfg:     config.DatabaseConfig{Driver: DriverPostgres},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			cfg:     config.DatabaseConfig{Driver: "mysql"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Initialize(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, conn.DB)
			assert.NoError(t, conn.HealthCheck())
			conn.Close()
		})
	}
}

func TestDB_HealthCheck(t *testing.T) {
	t.Run("closed connection", func(t *testing.T) {
		conn, err := Initialize(memoryConfig())
		require.NoError(t, err)
		require.NoError(t, conn.Close())
		assert.Error(t, conn.HealthCheck())
	})

	t.Run("nil connection", func(t *testing.T) {
		var conn *DB
		assert.Error(t, conn.HealthCheck())
	})
}

func TestDB_Migrate(t *testing.T) {
	conn, err := Initialize(memoryConfig())
	require.NoError(t, err)
	defer conn.Close()

	missing, err := conn.MissingTables()
	require.NoError(t, err)
	assert.Contains(t, missing, "recordings")
	assert.Contains(t, missing, "participant_audio_tracks")

	require.NoError(t, conn.Migrate())

	missing, err = conn.MissingTables()
	require.NoError(t, err)
	assert.Empty(t, missing)

	// running twice is a no-op
	assert.NoError(t, conn.Migrate())
}

func TestDB_TranslatesUniqueViolations(t *testing.T) {
	conn, err := Initialize(memoryConfig())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Migrate())

	require.NoError(t, conn.Create(&models.Recording{MeetingID: "m1", EgressID: "EG_1"}).Error)
	err = conn.Create(&models.Recording{MeetingID: "m1", EgressID: "EG_2"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDB_CascadeDelete(t *testing.T) {
	conn, err := Initialize(memoryConfig())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Migrate())

	rec := &models.Recording{MeetingID: "m1", EgressID: "EG_room"}
	require.NoError(t, conn.Create(rec).Error)
	require.NoError(t, conn.Create(&models.ParticipantAudioTrack{
		RecordingID: rec.ID, ParticipantIdentity: "alice", EgressID: "EG_alice",
	}).Error)

	require.NoError(t, conn.Delete(&models.Recording{}, "id = ?", rec.ID).Error)

	var count int64
	conn.Model(&models.ParticipantAudioTrack{}).Count(&count)
	assert.Zero(t, count)
}

func TestDB_Transaction(t *testing.T) {
	conn, err := Initialize(memoryConfig())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Migrate())

	t.Run("commit", func(t *testing.T) {
		err := conn.Transaction(context.Background(), func(tx *gorm.DB) error {
			return tx.Create(&models.Recording{MeetingID: "m-commit", EgressID: "EG_commit"}).Error
		})
		require.NoError(t, err)

		var count int64
		conn.Model(&models.Recording{}).Where("meeting_id = ?", "m-commit").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := conn.Transaction(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&models.Recording{MeetingID: "m-rollback", EgressID: "EG_rollback"}).Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		conn.Model(&models.Recording{}).Where("meeting_id = ?", "m-rollback").Count(&count)
		assert.Zero(t, count)
	})
}

type lines []string

func (l *lines) Printf(format string, args ...any) {
	*l = append(*l, fmt.Sprintf(format, args...))
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	db, err := Initialize(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	var out lines
	quiet := db.Session(&gorm.Session{Logger: newGormLogger(&out, false)})

	err = quiet.First(&models.User{}, "id = ?", "nobody").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, out)

	err = quiet.Raw("SELECT * FROM no_such_table").Scan(&[]map[string]any{}).Error
	require.Error(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "no_such_table")
}

func TestGormLogger_LogQueries(t *testing.T) {
	db, err := Initialize(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	var out lines
	verbose := db.Session(&gorm.Session{Logger: newGormLogger(&out, true)})
	require.NoError(t, verbose.Create(&models.User{ID: "u-1", Name: "Ada"}).Error)

	require.NotEmpty(t, out)
	assert.Contains(t, out[len(out)-1], "INSERT")
}
