package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"database/sql"

	"gopkg.in/yaml.v3"

	"PipelineSync/api"
	pipelineapi "PipelineSync/api/pipeline"
	"PipelineSync/internal/audit"
	"PipelineSync/internal/logger"
	"PipelineSync/internal/pipeline"
	"PipelineSync/internal/serviceiface"
	"PipelineSync/internal/store"
)

var db *sql.DB
var dealStore store.Store

// SetDB wires the database/sql handle used for apply run history.
func SetDB(database *sql.DB) {
	db = database
}

// SetStore wires the deal and account store the pipeline service reconciles.
func SetStore(s store.Store) {
	dealStore = s
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// GetStore returns the wired store
func GetStore() store.Store {
	return dealStore
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"pipeline": func(cfg map[string]interface{}) serviceiface.Service {
		opts := pipelineapi.EngineOptions(cfg)
		if db != nil {
			opts = append(opts, pipeline.WithAudit(audit.NewRecorder(db)))
		}
		return pipelineapi.NewPipelineService(cfg, pipeline.NewEngine(dealStore, opts...))
	},
	"gateway": func(cfg map[string]interface{}) serviceiface.Service {
		return api.NewGatewayService(cfg)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts services in registration order, which follows start_order.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		logger.Component("appmanager").Infof("Starting service: %s", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

// StopAll stops services in reverse order. Every service is asked to stop;
// the first error is returned.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	var first error
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil && first == nil {
			first = fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return first
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, s := range am.services {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseServiceSequence(data)
}

// ParseServiceSequence decodes services.yaml content sorted by start_order.
func ParseServiceSequence(data []byte) ([]ServiceConfig, error) {
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

// AutoRegisterServices builds every known service in config order. The
// logger is made global as soon as it is built so later constructors log
// through it. Unknown names are returned.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) []string {
	var unknown []string
	for _, svc := range configs {
		constructor, ok := serviceConstructors[svc.Name]
		if !ok {
			unknown = append(unknown, svc.Name)
			continue
		}
		service := constructor(svc.Config)
		if l, ok := service.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
		}
		am.RegisterService(service)
	}
	return unknown
}
