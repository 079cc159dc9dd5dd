package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cf, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "retail", cf.ServiceName)
	assert.Equal(t, "memory", cf.DbDriver)
	assert.Equal(t, 1, cf.WarehouseStoreID)
	assert.Equal(t, 6, cf.StatusCancelled)
	assert.Equal(t, time.Minute, cf.PromotionRefreshInterval)
	assert.Empty(t, cf.KafkaBrokerList())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeFile(t, ".env", `
DB_DRIVER=postgres
POSTGRES_HOST=db.internal
WAREHOUSE_STORE_ID=9
KAFKA_BROKERS=k1:9092, k2:9092
PROMOTION_REFRESH_INTERVAL=30s
LOG_PRETTY=true
`)
	t.Setenv("POSTGRES_HOST", "override.internal")

	cf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cf.DbDriver)
	assert.Equal(t, "override.internal", cf.DbHost)
	assert.Equal(t, 9, cf.WarehouseStoreID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cf.KafkaBrokerList())
	assert.Equal(t, 30*time.Second, cf.PromotionRefreshInterval)
	assert.True(t, cf.LogPretty)
}

func TestLoadSeed(t *testing.T) {
	path := writeFile(t, "seed.yaml", `
stores:
  - { id: 1, name: Warehouse, status_id: 1 }
products:
  - { id: 7, sku: RUN-7, name: Runner, original_price: "100.00", cost_price: 60, status_id: 1 }
stock_entries:
  - { store_id: 1, product_id: 7, quantity: 5, sale_price: "99.50" }
`)

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Products, 1)
	assert.Equal(t, "100.00", seed.Products[0].OriginalPrice.StringFixed(2))
	assert.Equal(t, "60.00", seed.Products[0].CostPrice.StringFixed(2))
	require.Len(t, seed.StockEntries, 1)
	assert.Equal(t, "99.50", seed.StockEntries[0].SalePrice.StringFixed(2))

	seed, err = LoadSeed("")
	require.NoError(t, err)
	assert.Nil(t, seed)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestShippedSeedParses(t *testing.T) {
	seed, err := LoadSeed(filepath.Join("..", "..", "config", "seed.yaml"))
	require.NoError(t, err)
	assert.Len(t, seed.Statuses, 6)
	assert.NotEmpty(t, seed.StockEntries)
}
