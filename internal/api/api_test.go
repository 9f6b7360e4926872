package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/model/modeltest"
)

func fixture() []model.Publication {
	full := modeltest.Completed()
	second := model.Publication{URL: "https://x/2", Title: "Woo-verzoek", Source: "Stibbe", Type: "Blog", Theme: "Omgevingsrecht", RelevanceScore: 3}
	third := model.Publication{URL: "https://x/3", Title: "Derde", Source: "VNG"}
	return []model.Publication{full, second, third}
}

func newTestServer(t *testing.T, load Loader) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "pubenrich_test_total", Help: "test"}))
	srv := httptest.NewServer(NewRouter(Options{
		Load:          load,
		Profile:       model.ProfileBasic,
		CostPerRecord: 0.02,
		CORSOrigins:   []string{"https://bestuursrecht.example"},
		Gatherer:      reg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return nil, nil })
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestList_Filters(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return fixture(), nil })

	tests := []struct {
		query string
		urls  []string
	}{
		{"", []string{modeltest.Completed().URL, "https://x/2", "https://x/3"}},
		{"?theme=handhaving", []string{modeltest.Completed().URL}},
		{"?type=blog,Handreiking", []string{modeltest.Completed().URL, "https://x/2"}},
		{"?source=VNG", []string{modeltest.Completed().URL, "https://x/3"}},
		{"?min_score=5", []string{modeltest.Completed().URL}},
		{"?incomplete=true", []string{"https://x/2", "https://x/3"}},
		{"?incomplete=false", []string{modeltest.Completed().URL}},
		{"?q=woo", []string{"https://x/2"}},
		{"?limit=1&offset=1", []string{"https://x/2"}},
		{"?offset=10", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var resp ListResponse
			require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/publications"+tt.query, &resp))
			got := make([]string, 0, len(resp.Items))
			for _, p := range resp.Items {
				got = append(got, p.URL)
			}
			assert.Equal(t, tt.urls, got)
		})
	}
}

func TestList_BadParams(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return fixture(), nil })
	for _, q := range []string{"?min_score=11", "?incomplete=maybe", "?limit=0", "?offset=-1", "?profile=deluxe"} {
		var body map[string]string
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/publications"+q, &body), q)
		assert.True(t, strings.HasPrefix(body["error"], "invalid"), q)
	}
}

func TestList_LoadFailure(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return nil, errors.New("gone") })
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/publications", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/publications/stats", nil))
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return fixture(), nil })

	var s model.Stats
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/publications/stats", &s))
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Incomplete)
	assert.InDelta(t, 0.04, s.EstimatedCost, 1e-9)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/publications/stats?profile=extended", &s))
	assert.Equal(t, model.ProfileExtended, s.Profile)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return nil, nil })
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pubenrich_test_total")
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, func() ([]model.Publication, error) { return nil, nil })

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://bestuursrecht.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://bestuursrecht.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close() //nolint:errcheck
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}
