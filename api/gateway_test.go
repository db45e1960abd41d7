package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineSync/api/constants"
)

func TestGatewayProxiesByLongestPrefix(t *testing.T) {
	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short " + r.URL.Path))
	}))
	defer short.Close()
	long := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("long " + r.URL.Path))
	}))
	defer long.Close()

	gw := httptest.NewServer(NewRouter(map[string][]string{
		"/pipeline/":        {short.URL},
		"/pipeline/import/": {long.URL},
	}))
	defer gw.Close()

	resp, err := http.Get(gw.URL + "/pipeline/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "short /pipeline/health", string(body))

	resp, err = http.Get(gw.URL + "/pipeline/import/runs")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "long /pipeline/import/runs", string(body))
}

func TestGatewayNotFoundAndBadTarget(t *testing.T) {
	router := NewRouter(map[string][]string{"/broken/": {"://nope"}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, constants.ErrRouteNotFound, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/broken/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGatewayBalancesInstances(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	backend := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits[name]++
			mu.Unlock()
		}))
	}
	a, b := backend("a"), backend("b")
	defer a.Close()
	defer b.Close()

	router := NewRouter(map[string][]string{"/pipeline/": {a.URL, b.URL}})
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pipeline/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, hits)
}

func TestGatewayRoutesConfig(t *testing.T) {
	svc := &GatewayService{config: map[string]interface{}{
		"routes": map[string]interface{}{
			"/pipeline/": []interface{}{"http://p1:6243", "http://p2:6243"},
			"/other/":    "http://o:1",
		},
	}}
	assert.Equal(t, map[string][]string{
		"/pipeline/": {"http://p1:6243", "http://p2:6243"},
		"/other/":    {"http://o:1"},
	}, svc.routes())

	assert.Equal(t, DefaultRoutes, (&GatewayService{config: map[string]interface{}{}}).routes())
}
