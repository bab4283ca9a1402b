package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}
	return nil
}

// SplitMono converts input to mono Opus at the configured bitrate and cuts it into
// fixed-length segments written to outDir. Chunks are returned in playback order.
func (f *FFmpeg) SplitMono(ctx context.Context, input, outDir string, opts SplitOptions) ([]Chunk, error) {
	opts = opts.withDefaults()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	pattern := filepath.Join(outDir, chunkPrefix+"%03d.ogg")
	cmd := exec.CommandContext(ctx, f.ffmpegPath, splitArgs(input, pattern, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, NewProcessingError("split", input, ErrProcessingTimeout, stderr.String())
		}
		return nil, NewProcessingError("split", input, err, stderr.String())
	}

	return collectChunks(outDir, opts.SegmentSeconds)
}

const chunkPrefix = "chunk-"

func splitArgs(input, pattern string, opts SplitOptions) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-f", "segment",
		"-segment_time", strconv.Itoa(opts.SegmentSeconds),
		"-reset_timestamps", "1",
		"-ac", "1",
		"-c:a", "libopus",
		"-b:a", opts.Bitrate,
		"-y",
		pattern,
	}
}

// collectChunks lists the segment files ffmpeg produced, sorted by index
func collectChunks(dir string, segmentSeconds int) ([]Chunk, error) {
	matches, err := filepath.Glob(filepath.Join(dir, chunkPrefix+"*.ogg"))
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	sort.Strings(matches)

	chunks := make([]Chunk, 0, len(matches))
	for i, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat chunk %s: %w", path, err)
		}
		chunks = append(chunks, Chunk{
			Index: i,
			Path:  path,
			Size:  info.Size(),
			Start: float64(i * segmentSeconds),
			End:   float64((i + 1) * segmentSeconds),
		})
	}
	return chunks, nil
}
