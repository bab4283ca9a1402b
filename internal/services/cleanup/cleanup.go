package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
)

// Prefixes of the scratch directories created by transcription runs
var DefaultPrefixes = []string{"transcription-", "stt-"}

// Service removes scratch directories left behind by workers that died mid-job
type Service struct {
	tempDir  string
	maxAge   time.Duration
	prefixes []string
	now      func() time.Time
}

// NewService creates a sweeper for tempDir. Entries younger than maxAge are kept
// since a running job may still own them.
func NewService(tempDir string, maxAge time.Duration, prefixes ...string) *Service {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Service{
		tempDir:  tempDir,
		maxAge:   maxAge,
		prefixes: prefixes,
		now:      time.Now,
	}
}

// Sweep removes stale top-level entries of the temp dir and returns how many were removed
func (s *Service) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !s.owned(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed concurrently
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.WarnContext(ctx, "Failed to remove temp entry", "path", path, logging.ErrKey, err)
			continue
		}
		slog.DebugContext(ctx, "Removed stale temp entry", "path", path, "age", s.now().Sub(info.ModTime()).Round(time.Second))
		removed++
	}
	return removed, nil
}

func (s *Service) owned(name string) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
