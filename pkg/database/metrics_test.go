package database

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Collect(t *testing.T) {
	// pgxpool connects lazily, so no database is needed to read stats.
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/db?sslmode=disable&pool_max_conns=7")
	require.NoError(t, err)
	defer pool.Close()

	c := NewPoolStatsCollector(pool, "marketplace")
	assert.Equal(t, 8, testutil.CollectAndCount(c))

	expected := `
# HELP db_pool_max_connections Maximum number of connections allowed
# TYPE db_pool_max_connections gauge
db_pool_max_connections{service="marketplace"} 7
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "db_pool_max_connections"))
}

func TestRegisterPoolMetrics_DuplicateFails(t *testing.T) {
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/db?sslmode=disable")
	require.NoError(t, err)
	defer pool.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, pool, "marketplace"))
	assert.Error(t, RegisterPoolMetrics(reg, pool, "marketplace"))
}
