package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"loanprep/internal/config"
	apperrors "loanprep/internal/errors"
)

// StagingPath returns the in-progress path for dest: the same directory,
// with the file name prefixed by "_temp_".
func StagingPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), config.StagingPrefix+filepath.Base(dest))
}

// Finalizer publishes a staging file under its destination path with a
// single rename, so readers see either the old file or the complete new one.
type Finalizer struct {
	dest    string
	staging string
	logger  *slog.Logger
}

// NewFinalizer creates a finalizer for dest
func NewFinalizer(dest string, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		dest:    dest,
		staging: StagingPath(dest),
		logger:  logger.With(slog.String("component", "finalizer")),
	}
}

// Destination returns the final path
func (f *Finalizer) Destination() string {
	return f.dest
}

// StagingPath returns the staging file path
func (f *Finalizer) StagingPath() string {
	return f.staging
}

// Prepare creates the destination directory and deletes a staging file left
// behind by an interrupted run.
func (f *Finalizer) Prepare() error {
	dir := filepath.Dir(f.dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewIOError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	err := os.Remove(f.staging)
	switch {
	case err == nil:
		f.logger.Warn("Removed stale staging file", slog.String("staging", f.staging))
	case errors.Is(err, os.ErrNotExist):
	default:
		return apperrors.NewIOError(fmt.Sprintf("failed to remove stale staging file %s", f.staging), err)
	}
	return nil
}

// Commit renames the staging file over the destination. The staging file must
// already be synced and closed.
func (f *Finalizer) Commit() error {
	if err := os.Rename(f.staging, f.dest); err != nil {
		f.Abort()
		return apperrors.NewIOError(fmt.Sprintf("failed to replace %s", f.dest), err).
			WithContext("staging", f.staging)
	}
	syncDir(filepath.Dir(f.dest))

	f.logger.Info("Replaced destination file",
		slog.String("destination", f.dest),
		slog.String("staging", f.staging))
	return nil
}

// Abort removes the staging file; the destination is left untouched.
func (f *Finalizer) Abort() error {
	if err := os.Remove(f.staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Error("Failed to remove staging file",
			slog.String("staging", f.staging),
			slog.String("error", err.Error()))
		return apperrors.NewIOError("failed to remove staging file", err)
	}
	return nil
}

// syncDir persists the rename on file systems that need a directory fsync.
// Platforms that cannot open a directory for sync are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
