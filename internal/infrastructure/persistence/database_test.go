package persistence_test

import (
	"testing"

	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestDatabase_RegisterPoolMetrics(t *testing.T) {
	db, err := persistence.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())

	reg := prometheus.NewRegistry()
	require.NoError(t, db.RegisterPoolMetrics(reg, "meterbill"))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "go_sql_open_connections")
	assert.Contains(t, names, "go_sql_max_open_connections")

	assert.Error(t, db.RegisterPoolMetrics(reg, "meterbill"), "same pool registered twice")
}
