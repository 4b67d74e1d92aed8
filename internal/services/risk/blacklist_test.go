package risk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

func TestMultiBlacklist(t *testing.T) {
	down := new(MockBlacklist)
	down.On("IsBlacklisted", mock.Anything, mock.Anything).Return(false, errStoreDown)

	t.Run("hit wins over errors", func(t *testing.T) {
		m := MultiBlacklist{down, staticBlacklist{"192.0.2.1": true}}
		hit, err := m.IsBlacklisted(context.Background(), "192.0.2.1")
		assert.NoError(t, err)
		assert.True(t, hit)
	})

	t.Run("miss reports errors", func(t *testing.T) {
		m := MultiBlacklist{staticBlacklist{}, down}
		hit, err := m.IsBlacklisted(context.Background(), "192.0.2.2")
		assert.ErrorIs(t, err, errStoreDown)
		assert.False(t, hit)
	})

	t.Run("clean miss", func(t *testing.T) {
		hit, err := MultiBlacklist{staticBlacklist{}}.IsBlacklisted(context.Background(), "192.0.2.3")
		assert.NoError(t, err)
		assert.False(t, hit)
	})
}

func newRadarServer(t *testing.T, listed map[string]bool, fail bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/v1/radar/value_list_items" || r.URL.Query().Get("value_list") != "rsl_1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"unknown route","type":"invalid_request_error"}}`))
			return
		}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"radar unavailable","type":"api_error"}}`))
			return
		}
		data := "[]"
		if ip := r.URL.Query().Get("value"); listed[ip] {
			data = `[{"id":"rsli_1","object":"radar.value_list_item","value":"` + ip + `","value_list":"rsl_1"}]`
		}
		w.Write([]byte(`{"object":"list","url":"/v1/radar/value_list_items","has_more":false,"data":` + data + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRadar(srv *httptest.Server) *RadarBlacklist {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewRadarBlacklistWithBackend(backend, "sk_test_123", "rsl_1")
}

func TestRadarBlacklist(t *testing.T) {
	radar := newTestRadar(newRadarServer(t, map[string]bool{"203.0.113.7": true}, false))

	t.Run("listed ip", func(t *testing.T) {
		hit, err := radar.IsBlacklisted(context.Background(), "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, hit)
	})

	t.Run("unlisted ip", func(t *testing.T) {
		hit, err := radar.IsBlacklisted(context.Background(), "203.0.113.8")
		require.NoError(t, err)
		assert.False(t, hit)
	})
}

func TestRadarBlacklist_APIErrorDegrades(t *testing.T) {
	radar := newTestRadar(newRadarServer(t, nil, true))

	hit, err := radar.IsBlacklisted(context.Background(), "203.0.113.7")
	assert.Error(t, err)
	assert.False(t, hit)

	r := NewIPReputationResolver(NewMemorySignalStore(), staticOracle{}, radar, nil, Config{}, nil)
	rep, degraded := r.Resolve(context.Background(), "203.0.113.7")
	assert.Equal(t, []Signal{SignalIPBlacklist}, degraded)
	assert.False(t, rep.IsBlacklisted)
}
