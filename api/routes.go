package api

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"PipelineSync/pkg/loadbalancer"
)

// DefaultRoutes maps gateway path prefixes to backing service instances.
var DefaultRoutes = map[string][]string{
	"/pipeline/": {"http://localhost:6243"},
}

// NewRouter builds the gateway router. Longer prefixes are matched first; a
// prefix with several targets is balanced round-robin.
func NewRouter(routes map[string][]string) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	}).Methods(http.MethodGet)

	prefixes := make([]string, 0, len(routes))
	for p := range routes {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		targets := routes[p]
		if len(targets) == 1 {
			router.PathPrefix(p).Handler(createReverseProxy(targets[0]))
			continue
		}
		router.PathPrefix(p).Handler(loadbalancer.NewLoadBalancer(targets, func(target string) http.Handler {
			return createReverseProxy(target)
		}))
	}

	router.NotFoundHandler = http.HandlerFunc(notFound)
	return router
}
