// Package logutil locates and reads the log files written by inboxd's
// component loggers.
package logutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/logging"
	"github.com/grovetools/inbox/pkg/paths"
	"github.com/grovetools/inbox/util/pathutil"
)

// FileComponent is the component name reported for a configured file sink,
// which every component shares.
const FileComponent = "file"

// dateSuffix is the suffix the loggers append to the component name.
const dateSuffix = "-2006-01-02.log"

// LogsDir returns the directory the component loggers write to by default.
func LogsDir() string {
	return filepath.Join(paths.StateDir(), "logs")
}

// FindLogFiles maps each component to its newest log file. When logCfg
// names a file sink that file is returned alone. only filters components;
// empty means all.
func FindLogFiles(logCfg logging.Config, only []string) (map[string]string, error) {
	if logCfg.File.Enabled && logCfg.File.Path != "" {
		path, err := pathutil.Expand(logCfg.File.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid log file path")
		}
		return map[string]string{FileComponent: path}, nil
	}

	dir := LogsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read log directory").WithDetail("path", dir)
	}

	wanted := make(map[string]bool, len(only))
	for _, c := range only {
		wanted[c] = true
	}

	// The lexically largest name per component is the newest.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	files := make(map[string]string)
	for _, e := range entries {
		component, ok := componentOf(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		if len(wanted) > 0 && !wanted[component] {
			continue
		}
		files[component] = filepath.Join(dir, e.Name())
	}
	return files, nil
}

// componentOf extracts the component from a <component>-<YYYY-MM-DD>.log name.
func componentOf(name string) (string, bool) {
	if !strings.HasSuffix(name, ".log") || len(name) <= len(dateSuffix) {
		return "", false
	}
	return name[:len(name)-len(dateSuffix)], true
}

// LastLinesOffset returns the byte offset at which the last n lines of
// path begin. A negative n means the whole file.
func LastLinesOffset(path string, n int) (int64, error) {
	if n < 0 {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return int64(len(data)), nil
	}
	end := len(data)
	if end > 0 && data[end-1] == '\n' {
		end--
	}
	for i := 0; i < n; i++ {
		idx := bytes.LastIndexByte(data[:end], '\n')
		if idx < 0 {
			return 0, nil
		}
		end = idx
	}
	return int64(end + 1), nil
}
