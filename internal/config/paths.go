package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved directories used by the tools.
// Relative entries in PathsConfig are resolved against BaseDir.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	LogsDir    string
}

// GetPaths resolves the configured directories to absolute paths
func (c *Config) GetPaths() (*Paths, error) {
	base, err := filepath.Abs(c.Paths.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolve(c.Paths.DataDir),
		ReportsDir: resolve(c.Paths.ReportsDir),
		LogsDir:    resolve(c.Paths.LogsDir),
	}, nil
}

// EnsureDirectories creates the report and log directories if they don't exist.
// The data directory is never created: inputs must already be there.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetReportPath returns the path for a run report
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// ResolveDataPath resolves a dataset path: absolute paths and paths that
// exist relative to the working directory are kept, everything else is
// looked up under DataDir.
func (p *Paths) ResolveDataPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(p.DataDir, path)
}
