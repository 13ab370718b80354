package database

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/drumscribe/drumscribe-api/internal/models"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:    "successful connection with in-memory database",
			dbPath:  ":memory:",
			wantErr: false,
		},
		{
			name:    "successful connection with file database",
			dbPath:  filepath.Join(t.TempDir(), "test.db"),
			wantErr: false,
		},
		{
			name:    "empty database path creates in-memory database",
			dbPath:  "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Initialize(tt.dbPath, false)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, conn)
			assert.NotNil(t, conn.DB)

			if conn != nil {
				conn.Close()
			}
		})
	}
}

func TestDB_Close(t *testing.T) {
	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	require.NotNil(t, conn)

	err = conn.Close()
	assert.NoError(t, err)

	// Verify connection is closed by checking if health check fails
	err = conn.HealthCheck()
	assert.Error(t, err, "HealthCheck should fail after database is closed")
}

func TestDB_HealthCheck(t *testing.T) {
	t.Run("healthy connection", func(t *testing.T) {
		conn, err := Initialize(":memory:", false)
		require.NoError(t, err)
		defer conn.Close()

		assert.NoError(t, conn.HealthCheck())
	})

	t.Run("nil connection", func(t *testing.T) {
		var conn *DB
		assert.Error(t, conn.HealthCheck())
	})
}

func TestDB_Migrate(t *testing.T) {
	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Migrate())

	for _, table := range []string{"jobs", "transcriptions"} {
		var count int64
		err := conn.DB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error
		assert.NoError(t, err)
		assert.Equal(t, int64(1), count, "table %s should exist", table)
	}
}

func TestDB_JobRoundTrip(t *testing.T) {
	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Migrate())

	job := models.Job{
		Type:   models.JobTypeTranscription,
		Status: models.JobStatusPending,
		Payload: models.JobPayload{
			models.PayloadSourceType: "upload",
			models.PayloadSource:     "/data/1/original.wav",
			models.PayloadBPM:        120.0,
		},
	}
	require.NoError(t, conn.DB.Create(&job).Error)
	require.NotZero(t, job.ID)

	var fetched models.Job
	require.NoError(t, conn.DB.First(&fetched, job.ID).Error)
	assert.Equal(t, models.JobTypeTranscription, fetched.Type)

	bpm, ok := fetched.GetPayloadFloat(models.PayloadBPM)
	require.True(t, ok)
	assert.Equal(t, 120.0, bpm)
}

func TestDB_Transaction(t *testing.T) {
	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Migrate())

	t.Run("successful transaction", func(t *testing.T) {
		err := conn.DB.Transaction(func(tx *gorm.DB) error {
			for i := 0; i < 3; i++ {
				job := models.Job{Type: models.JobTypeTranscription}
				if err := tx.Create(&job).Error; err != nil {
					return err
				}
			}
			return nil
		})
		assert.NoError(t, err)

		var count int64
		conn.DB.Model(&models.Job{}).Count(&count)
		assert.Equal(t, int64(3), count)
	})

	t.Run("failed transaction rollback", func(t *testing.T) {
		var countBefore int64
		conn.DB.Model(&models.Job{}).Count(&countBefore)

		err := conn.DB.Transaction(func(tx *gorm.DB) error {
			job := models.Job{Type: models.JobTypeTranscription}
			if err := tx.Create(&job).Error; err != nil {
				return err
			}
			return gorm.ErrInvalidTransaction
		})
		assert.Error(t, err)

		var countAfter int64
		conn.DB.Model(&models.Job{}).Count(&countAfter)
		assert.Equal(t, countBefore, countAfter)
	})
}

func TestInitializeWithMigrations(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T)
		wantErr   bool
		errMsg    string
	}{
		{
			name: "successful initialization with valid config",
			setupFunc: func(t *testing.T) {
				viper.Reset()
				viper.Set("database.path", ":memory:")
				viper.Set("database.verbose", false)
			},
			wantErr: false,
		},
		{
			name: "error when database path not configured",
			setupFunc: func(t *testing.T) {
				viper.Reset()
			},
			wantErr: true,
			errMsg:  "database path is not configured",
		},
		{
			name: "successful initialization with file database",
			setupFunc: func(t *testing.T) {
				viper.Reset()
				viper.Set("database.path", filepath.Join(t.TempDir(), "test.db"))
				viper.Set("database.verbose", false)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupFunc(t)

			db, err := InitializeWithMigrations()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.Nil(t, db)
				return
			}

			assert.NoError(t, err)
			require.NotNil(t, db)

			var count int64
			err = db.DB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='jobs'").Scan(&count).Error
			assert.NoError(t, err)
			assert.Greater(t, count, int64(0), "jobs table should exist")

			db.Close()
		})
	}
}
