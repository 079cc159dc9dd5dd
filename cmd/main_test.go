package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/RoyceAzure/lab/retail/internal/appcontext"
	"github.com/RoyceAzure/lab/retail/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpsRouter(t *testing.T) {
	ctx := context.Background()
	cf, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	cf.DbDriver = appcontext.DriverMemory
	cf.RedisAddr = ""
	cf.KafkaBrokers = ""
	cf.SeedFile = ""

	app, err := appcontext.NewApplicationContext(ctx, cf)
	require.NoError(t, err)
	defer app.Shutdown(ctx)
	app.Metrics.OrderCreated("Online")

	srv := httptest.NewServer(newRouter(app))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
