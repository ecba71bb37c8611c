package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg)
	h := m.Instrument("/pairs/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pairs/x", nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/pairs/{key}", "get", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNewHTTPReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewHTTP(reg)
	second := NewHTTP(reg)
	assert.Same(t, first.requests, second.requests)
	assert.Same(t, first.duration, second.duration)
}
