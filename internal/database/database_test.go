package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimlabs/curation-service/internal/config"
)

// mockDBTX is a mock implementation of DBTX for interface verification.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func TestDBTX_Interface(t *testing.T) {
	var _ DBTX = (*mockDBTX)(nil)
}

func TestHealthCheckTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, HealthCheckTimeout)
}

func TestHealthStatus_JSON(t *testing.T) {
	health := HealthStatus{
		Status:        "healthy",
		TotalConns:    5,
		AcquiredConns: 2,
		IdleConns:     3,
		MaxConns:      20,
	}

	data, err := json.Marshal(health)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "healthy", decoded["status"])
	assert.Equal(t, float64(20), decoded["max_conns"])
	// empty error is omitted
	_, hasError := decoded["error"]
	assert.False(t, hasError)
}

func TestNew_InvalidDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "skim",
		Name:    "skim",
		SSLMode: "definitely-not-a-mode",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_ConnectionError(t *testing.T) {
	// Port 1 is essentially guaranteed to have nothing listening.
	cfg := &config.DatabaseConfig{
		Host:           "127.0.0.1",
		Port:           1,
		User:           "skim",
		Password:       "skim",
		Name:           "skim",
		SSLMode:        "disable",
		MaxConns:       2,
		MinConns:       1,
		ConnectTimeout: 500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, db)
}
