package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"PipelineSync/internal/config"
)

// LoggerService owns the process log file. It writes text lines through a
// logrus logger, rotates the file by size and zips files past retention.
type LoggerService struct {
	Config        map[string]interface{}
	log           *logrus.Logger
	file          *os.File
	mu            sync.Mutex
	sched         *cron.Cron
	currentLog    string
	maxFileBytes  int64
	retentionDays int
	folderPath    string
	rotateSpec    string
	retentionSpec string
}

func NewLoggerService(cfg map[string]interface{}) *LoggerService {
	maxMB := toInt(cfg["max_file_mb"])
	retention := toInt(cfg["retention_days"])

	folder, _ := cfg["folder_path"].(string)
	if folder == "" {
		folder = config.DefaultLogFolder
	}
	level := logrus.InfoLevel
	if s, ok := cfg["level"].(string); ok && s != "" {
		if lv, err := logrus.ParseLevel(s); err == nil {
			level = lv
		}
	}
	rotate, _ := cfg["rotation_schedule"].(string)
	if rotate == "" {
		rotate = config.DefaultRotationSchedule
	}
	keep, _ := cfg["retention_schedule"].(string)
	if keep == "" {
		keep = config.DefaultRetentionSchedule
	}

	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	l.SetLevel(level)

	return &LoggerService{
		Config:        cfg,
		log:           l,
		maxFileBytes:  int64(maxMB) * 1024 * 1024,
		retentionDays: retention,
		folderPath:    folder,
		rotateSpec:    rotate,
		retentionSpec: keep,
	}
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

func (l *LoggerService) Name() string {
	return "logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentLog = logFile
	l.log.SetOutput(io.MultiWriter(os.Stdout, file))
	l.log.WithField("file", logFile).Info("logger started")

	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		loc = time.Local
	}
	l.sched = cron.New(cron.WithLocation(loc))
	if _, err := l.sched.AddFunc(l.rotateSpec, func() {
		if err := l.rotateIfNeeded(); err != nil {
			l.log.WithError(err).Warn("log rotation failed")
		}
	}); err != nil {
		return fmt.Errorf("rotation schedule %q: %w", l.rotateSpec, err)
	}
	if _, err := l.sched.AddFunc(l.retentionSpec, l.zipAndCleanOldLogs); err != nil {
		return fmt.Errorf("retention schedule %q: %w", l.retentionSpec, err)
	}
	l.sched.Start()
	return nil
}

func (l *LoggerService) Stop() error {
	if l.sched != nil {
		<-l.sched.Stop().Done()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.log.Info("logger stopping")
		l.log.SetOutput(os.Stdout)
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Logger exposes the underlying logrus logger.
func (l *LoggerService) Logger() *logrus.Logger {
	return l.log
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(l.folderPath, fmt.Sprintf("app_%s.log", timestamp))
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileBytes {
		return nil
	}
	newLog := l.nextLogFileName()
	if newLog == l.currentLog {
		return nil
	}
	file, err := os.OpenFile(newLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	old := l.file
	l.file = file
	l.currentLog = newLog
	l.log.SetOutput(io.MultiWriter(os.Stdout, file))
	old.Close()
	l.log.WithField("file", newLog).Info("rotated log file")
	return nil
}

func (l *LoggerService) zipAndCleanOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}

	var stale []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		full := filepath.Join(l.folderPath, f.Name())
		if full == l.currentLog {
			continue
		}
		info, err := os.Stat(full)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stale = append(stale, full)
	}
	if len(stale) == 0 {
		return
	}

	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", time.Now().Format("20060102_150405")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		l.log.WithError(err).Warn("log archive create failed")
		return
	}
	defer zipFile.Close()
	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	for _, full := range stale {
		w, err := zw.Create(filepath.Base(full))
		if err != nil {
			continue
		}
		src, err := os.Open(full)
		if err != nil {
			continue
		}
		_, copyErr := io.Copy(w, src)
		src.Close()
		if copyErr == nil {
			os.Remove(full)
		}
	}
	l.log.WithFields(logrus.Fields{"archive": zipName, "files": len(stale)}).Info("archived old logs")
}

func (l *LoggerService) LogAudit(msg string) {
	l.log.Info("[AUDIT] " + msg)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

// Component returns a logger tagged with the component name. Before the
// logger service starts, entries go to the logrus standard logger.
func Component(name string) *logrus.Entry {
	if GlobalLogger != nil {
		return GlobalLogger.log.WithField("component", strings.ToLower(name))
	}
	return logrus.StandardLogger().WithField("component", strings.ToLower(name))
}
