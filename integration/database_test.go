//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestSensoriumWithMySQL tests the sensorium CLI with a MySQL backend.
func TestSensoriumWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "sensorium",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/sensorium?parseTime=true", host, port.Port())
	runBackendScenario(t, "mysql", connStr)
}

// TestSensoriumWithPostgres tests the sensorium CLI with a PostgreSQL backend.
func TestSensoriumWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	runBackendScenario(t, "postgresql", connStr)
}

// runBackendScenario migrates, ingests a full hour twice and checks the guard kept one
// row per bucket, then clears the store.
func runBackendScenario(t *testing.T, backend, connStr string) {
	env := map[string]string{
		"SENSORIUM_DB_BACKEND": backend,
		"SENSORIUM_DB_CONNECT": connStr,
		"SENSORIUM_SPOOL_DIR":  filepath.Join(t.TempDir(), "spool"),
		"SENSORIUM_LOG_LEVEL":  "error",
	}

	_, err := runSensorium(t, env, "store", "migrate")
	require.NoError(t, err)

	hour := time.Now().UTC().Truncate(time.Hour).Add(-5 * time.Hour)
	batch := writeHourBatch(t, t.TempDir(), hour)
	_, err = runSensorium(t, env, "ingest", batch)
	require.NoError(t, err)

	// The second run only meets existing rows
	out, err := runSensorium(t, env, "ingest", batch, "--output", "json")
	require.NoError(t, err)
	var results []schema.IngestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Minutes.Processed)
	assert.Equal(t, 60, results[0].Minutes.Duplicate)

	out, err = runSensorium(t, env, "query", "hours", "noise", "--output", "json")
	require.NoError(t, err)
	var hours []schema.HourAggregate
	require.NoError(t, json.Unmarshal([]byte(out), &hours))
	require.Len(t, hours, 1)
	assert.True(t, hour.Equal(hours[0].BucketStart))

	out, err = runSensorium(t, env, "store", "status", "--output", "json")
	require.NoError(t, err)
	var status schema.StoreStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, int64(1440), status.TableSizes["s_noise"]) // raw readings are appended on both runs
	assert.Equal(t, int64(60), status.TableSizes["m_noise"])
	assert.Equal(t, int64(1), status.TableSizes["h_noise"])

	_, err = runSensorium(t, env, "store", "clear")
	require.NoError(t, err)
}
