package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewBaseConnector_AppliesTLSConfig(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"count":3}`))
	}))
	defer srv.Close()

	cfg := config.Default().ElasticsearchCfg.HTTPClientConfig
	cfg.Url = srv.URL
	cfg.Token = "token"
	cfg.RequestTimeout = 5 * time.Second

	err := NewBaseConnector(cfg, zaptest.NewLogger(t)).DoRequest(context.Background(), http.MethodGet, "/chunks/_count", nil, nil)
	require.Error(t, err, "self-signed certificate is rejected unless verification is disabled")

	cfg.InsecureSkipVerify = true
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, NewBaseConnector(cfg, zaptest.NewLogger(t)).DoRequest(context.Background(), http.MethodGet, "/chunks/_count", nil, &resp))
	assert.Equal(t, 3, resp.Count)
}
