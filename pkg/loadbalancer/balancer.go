package loadbalancer

import (
	"net/http"
	"sync"
)

// LoadBalancer rotates requests round-robin across equivalent backends. Each
// backend is a handler, typically a reverse proxy to one service instance.
type LoadBalancer struct {
	servers  []string
	handlers []http.Handler
	mu       sync.Mutex
	current  int
}

// NewLoadBalancer builds one handler per server with newHandler.
func NewLoadBalancer(servers []string, newHandler func(server string) http.Handler) *LoadBalancer {
	lb := &LoadBalancer{
		servers:  servers,
		handlers: make([]http.Handler, len(servers)),
	}
	for i, s := range servers {
		lb.handlers[i] = newHandler(s)
	}
	return lb
}

// GetNextServer returns the next backend in rotation and its index.
func (lb *LoadBalancer) GetNextServer() (string, int) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	i := lb.current
	lb.current = (lb.current + 1) % len(lb.servers)
	return lb.servers[i], i
}

func (lb *LoadBalancer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(lb.servers) == 0 {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	_, i := lb.GetNextServer()
	lb.handlers[i].ServeHTTP(w, r)
}
