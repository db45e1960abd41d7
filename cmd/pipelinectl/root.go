package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"PipelineSync/internal/audit"
	"PipelineSync/internal/pipeline"
	"PipelineSync/internal/pipeline/extract"
	"PipelineSync/internal/store"
	"PipelineSync/internal/store/postgres"
	"PipelineSync/internal/store/sqlite"
)

const defaultSQLitePath = "pipeline.db"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pipelinectl",
	Short: "Reconcile a sales pipeline workbook against the deal store.",
	Long: `pipelinectl reads a pipeline workbook (.xlsx, .xls or .csv), shows how it
differs from the stored deals and, once approved, applies the changes.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := logrus.ParseLevel(viper.GetString("loglevel"))
		if err != nil {
			return fmt.Errorf("bad log level: %w", err)
		}
		logrus.SetLevel(lvl)
		logrus.SetOutput(os.Stderr)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pipelinectl.yaml)")
	pf.StringP("loglevel", "l", "warn", "Set log level. Available: debug, info, warn, error")
	pf.String("sqlite", "", "SQLite database file to reconcile against")
	pf.String("dsn", "", "Postgres connection URL to reconcile against")
	pf.String("pipeline-sheet", "", "name of the pipeline sheet")
	pf.String("assignment-sheet", "", "name of the account assignment sheet")

	for _, name := range []string{"loglevel", "sqlite", "dsn", "pipeline-sheet", "assignment-sheet"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".pipelinectl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PIPELINECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

func extractOptions() extract.Options {
	opts := extract.DefaultOptions()
	if s := viper.GetString("pipeline-sheet"); s != "" {
		opts.PipelineSheet = s
	}
	if s := viper.GetString("assignment-sheet"); s != "" {
		opts.AssignmentSheet = s
	}
	return opts
}

// openStore picks the store from --sqlite, then --dsn, then a local file.
func openStore(ctx context.Context) (store.Store, error) {
	if path := viper.GetString("sqlite"); path != "" {
		return sqlite.Open(expand(path))
	}
	if dsn := viper.GetString("dsn"); dsn != "" {
		s, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
	return sqlite.Open(defaultSQLitePath)
}

// openAudit returns a recorder when --dsn is set. The closer is never nil.
func openAudit(ctx context.Context) (*audit.Recorder, func(), error) {
	dsn := viper.GetString("dsn")
	if dsn == "" || viper.GetString("sqlite") != "" {
		return nil, func() {}, nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, func() {}, err
	}
	rec := audit.NewRecorder(db)
	if err := rec.Migrate(ctx); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	return rec, func() { db.Close() }, nil
}

// newEngine opens the configured store and returns an engine over it.
func newEngine(ctx context.Context) (*pipeline.Engine, func(), error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	rec, closeAudit, err := openAudit(ctx)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("open audit: %w", err)
	}
	eng := pipeline.NewEngine(st, pipeline.WithAudit(rec), pipeline.WithExtractOptions(extractOptions()))
	return eng, func() {
		closeAudit()
		st.Close()
	}, nil
}

func parseFile(eng *pipeline.Engine, path string) (*pipeline.ParseResult, error) {
	f, err := os.Open(expand(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return eng.Parse(f, filepath.Base(path))
}

func expand(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}
