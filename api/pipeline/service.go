package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"PipelineSync/internal/config"
	"PipelineSync/internal/logger"
	engine "PipelineSync/internal/pipeline"
	"PipelineSync/internal/pipeline/extract"
	"PipelineSync/internal/serviceiface"
)

type PipelineService struct {
	config map[string]interface{}
	engine *engine.Engine
	server *http.Server
}

// NewPipelineService builds the HTTP service around eng. Recognized config
// keys: port, item_timeout_seconds, pipeline_sheet, assignment_sheet.
func NewPipelineService(cfg map[string]interface{}, eng *engine.Engine) serviceiface.Service {
	return &PipelineService{config: cfg, engine: eng}
}

// EngineOptions turns the service config map into engine options.
func EngineOptions(cfg map[string]interface{}) []engine.Option {
	var opts []engine.Option
	if secs := toInt(cfg["item_timeout_seconds"]); secs > 0 {
		opts = append(opts, engine.WithItemTimeout(time.Duration(secs)*time.Second))
	}
	ex := extract.DefaultOptions()
	if s, ok := cfg["pipeline_sheet"].(string); ok && s != "" {
		ex.PipelineSheet = s
	}
	if s, ok := cfg["assignment_sheet"].(string); ok && s != "" {
		ex.AssignmentSheet = s
	}
	return append(opts, engine.WithExtractOptions(ex))
}

func (s *PipelineService) Name() string {
	return "pipeline"
}

func (s *PipelineService) Addr() string {
	if p := toInt(s.config["port"]); p > 0 {
		return fmt.Sprintf(":%d", p)
	}
	return config.DefaultPipelineAddr
}

func (s *PipelineService) Start() error {
	if s.engine == nil {
		return errors.New("pipeline service has no engine")
	}
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           NewRouter(s.engine),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log := logger.Component("pipeline")
	go func() {
		log.Infof("Pipeline Service started on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Pipeline Service failed")
		}
	}()
	return nil
}

func (s *PipelineService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(t, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}
