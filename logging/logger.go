package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/inbox/config"
	"github.com/grovetools/inbox/pkg/paths"
	"github.com/grovetools/inbox/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// active is set by Configure; nil means NewLogger loads inbox.yml itself.
	active *Config
)

// Configure installs the logging section of cfg for every logger created
// afterwards and drops the cached ones.
func Configure(cfg *config.Config) error {
	var logCfg Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return err
		}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	active = &logCfg
	loggers = make(map[string]*logrus.Entry)
	return nil
}

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if active != nil {
		logCfg = *active
	} else if cfg, err := config.LoadDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := Build(component, logCfg)
	loggers[component] = entry
	return entry
}

// Build creates an uncached logger for component from logCfg, with the
// INBOXD_LOG_* environment variables applied on top.
func Build(component string, logCfg Config) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("INBOXD_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("INBOXD_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	var writers []io.Writer
	if file := openLogFile(component, logCfg.File, logger); file != nil {
		writers = append(writers, file)
	}
	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger.WithField("component", component)
}

func openLogFile(component string, sink FileSinkConfig, logger *logrus.Logger) io.Writer {
	var logFilePath string
	if sink.Enabled && sink.Path != "" {
		expanded, err := pathutil.Expand(sink.Path)
		if err != nil {
			logger.Warnf("Failed to expand log file path %s: %v", sink.Path, err)
			return nil
		}
		logFilePath = expanded
	} else if stateDir := paths.StateDir(); stateDir != "" {
		dateStr := time.Now().Format("2006-01-02")
		logFilePath = filepath.Join(stateDir, "logs", fmt.Sprintf("%s-%s.log", component, dateStr))
	}
	if logFilePath == "" {
		return nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		// Only warn about paths the user asked for.
		if sink.Enabled {
			logger.Warnf("Failed to create log directory %s: %v", dir, err)
		}
		return nil
	}
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if sink.Enabled {
			logger.Warnf("Failed to open log file %s: %v", logFilePath, err)
		}
		return nil
	}
	return file
}

// shouldLogToStderr resolves the structured_to_stderr mode. In "auto"
// mode structured logs reach stderr when debugging or when stderr is not
// an interactive terminal, as under a service manager.
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	isDebug := os.Getenv("INBOXD_DEBUG") == "1" || level >= logrus.DebugLevel
	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return isDebug || !isInteractive
}
