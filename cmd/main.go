package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"PipelineSync/internal/appmanager"
	"PipelineSync/internal/audit"
	"PipelineSync/internal/store"
	"PipelineSync/internal/store/memory"
	"PipelineSync/internal/store/postgres"
	"PipelineSync/internal/store/sqlite"
)

// postgresDSN builds a connection URL from DATABASE_URL or the DB_* vars.
func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	if user == "" || host == "" || name == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
}

// InitDB opens the database/sql handle for apply run history.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openStore(ctx context.Context, driver, dsn string) (store.Store, error) {
	switch driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "./pipeline.db"
		}
		return sqlite.Open(path)
	case "postgres", "":
		if dsn == "" {
			return nil, fmt.Errorf("postgres store needs DATABASE_URL or DB_* settings")
		}
		s, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
}

func main() {
	// Load .env for local dev
	for _, f := range []string{"../.env", ".env"} {
		_ = godotenv.Load(f)
	}
	log := logrus.WithField("component", "main")

	dsn := postgresDSN()
	driver := os.Getenv("STORE_DRIVER")
	if driver == "" && dsn == "" {
		driver = "sqlite"
	}

	ctx := context.Background()
	st, err := openStore(ctx, driver, dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()
	appmanager.SetStore(st)

	if dsn != "" {
		db, err := InitDB(dsn)
		if err != nil {
			log.WithError(err).Warn("apply history disabled: failed to connect to DB")
		} else {
			defer db.Close()
			if err := audit.NewRecorder(db).Migrate(ctx); err != nil {
				log.WithError(err).Warn("apply history table migration failed")
			}
			appmanager.SetDB(db)
		}
	}

	manager := appmanager.NewAppManager()

	cfgPath := os.Getenv("SERVICES_CONFIG")
	if cfgPath == "" {
		cfgPath = "../services.yaml"
	}
	servicesCfg, err := appmanager.LoadServiceSequence(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load service sequence")
	}

	if unknown := manager.AutoRegisterServices(servicesCfg); len(unknown) > 0 {
		log.Warnf("ignoring unknown services: %v", unknown)
	}

	if err := manager.StartAll(); err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.WithError(err).Error("failed to stop")
	}
}
