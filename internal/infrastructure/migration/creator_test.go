package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meterbill/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add wallet index", "add_wallet_index"},
		{"Add-Wallet-Index", "add_wallet_index"},
		{"ADD__WALLET__INDEX", "add_wallet_index"},
		{"tiers v2", "tiers_v2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestNextVersion(t *testing.T) {
	assert.Equal(t, 1, nextVersion(nil))
	assert.Equal(t, 4, nextVersion([]string{"000001_billing", "000003_tiers", "notes"}))
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	first, err := CreateMigration(dir, "add wallet index", "Index the wallet ledger", now)
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_wallet_index.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Index the wallet ledger")
	assert.Contains(t, string(up), "2026-10-15T09:30:00Z")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	second, err := CreateMigration(dir, "tiers", "", now)
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	names, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_add_wallet_index", "000002_tiers"}, names)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "", time.Now())
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_billing", names[0])

	for _, name := range names {
		down, err := migrations.FS.ReadFile(name + ".down.sql")
		require.NoError(t, err, name)
		assert.True(t, strings.Contains(string(down), "DROP"), name)
	}

	up, err := migrations.FS.ReadFile("000001_billing.up.sql")
	require.NoError(t, err)
	for _, index := range []string{"idx_meter_readings_live", "idx_invoices_live_period_meter", "idx_pricing_rules_active_key", "idx_wallet_transactions_ledger"} {
		assert.Contains(t, string(up), index)
	}

	seq, err := migrations.FS.ReadFile("000002_wallet_sequence.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(seq), "idx_wallet_transactions_sequence")
}
