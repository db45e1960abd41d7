package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"PipelineSync/internal/config"
	"PipelineSync/internal/logger"
	"PipelineSync/internal/serviceiface"
)

type GatewayService struct {
	config map[string]interface{}
	server *http.Server
}

func NewGatewayService(cfg map[string]interface{}) serviceiface.Service {
	return &GatewayService{config: cfg}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

// routes reads the "routes" config map, falling back to DefaultRoutes. A
// route target is either one URL or a list of equivalent instances.
func (s *GatewayService) routes() map[string][]string {
	raw, ok := s.config["routes"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return DefaultRoutes
	}
	out := make(map[string][]string, len(raw))
	for prefix, target := range raw {
		switch t := target.(type) {
		case string:
			if t != "" {
				out[prefix] = []string{t}
			}
		case []interface{}:
			for _, v := range t {
				if u, ok := v.(string); ok && u != "" {
					out[prefix] = append(out[prefix], u)
				}
			}
		}
	}
	return out
}

func (s *GatewayService) addr() string {
	switch p := s.config["port"].(type) {
	case int:
		return fmt.Sprintf(":%d", p)
	case string:
		if p != "" {
			return ":" + p
		}
	}
	return config.DefaultGatewayAddr
}

func (s *GatewayService) Start() error {
	s.server = &http.Server{
		Addr:              s.addr(),
		Handler:           NewRouter(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log := logger.Component("gateway")
	go func() {
		log.Infof("API Gateway started on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Gateway server failed")
		}
	}()
	return nil
}

func (s *GatewayService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
