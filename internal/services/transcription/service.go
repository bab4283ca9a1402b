package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/pkg/ffmpeg"
	"golang.org/x/sync/errgroup"
)

// Options tune how a track is cut and sent to the speech API
type Options struct {
	ChunkSeconds  int
	Bitrate       string
	MaxChunkBytes int64
	Concurrency   int
	TempDir       string
}

func (o Options) withDefaults() Options {
	if o.ChunkSeconds <= 0 {
		o.ChunkSeconds = 25
	}
	if o.MaxChunkBytes <= 0 {
		o.MaxChunkBytes = 1024 * 1024
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// Transcriber splits a track into short mono chunks and recognizes them in order
type Transcriber struct {
	splitter Splitter
	stt      STTClient
	opts     Options
}

// NewService creates a transcriber
func NewService(splitter Splitter, stt STTClient, opts Options) *Transcriber {
	return &Transcriber{splitter: splitter, stt: stt, opts: opts.withDefaults()}
}

// Transcribe returns one segment spanning every chunk, or none when nothing was said
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) ([]models.Segment, error) {
	if t.silent(ctx, audioPath) {
		slog.InfoContext(ctx, "Track has no audio, skipping recognition", "path", audioPath)
		return []models.Segment{}, nil
	}

	workDir, err := os.MkdirTemp(t.opts.TempDir, "stt-")
	if err != nil {
		return nil, fmt.Errorf("creating chunk directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	chunks, err := t.splitter.SplitMono(ctx, audioPath, workDir, ffmpeg.SplitOptions{
		SegmentSeconds: t.opts.ChunkSeconds,
		Bitrate:        t.opts.Bitrate,
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Split audio into chunks", "count", len(chunks), "path", audioPath)

	texts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Concurrency)

	for i, chunk := range chunks {
		if chunk.Size > t.opts.MaxChunkBytes {
			slog.WarnContext(ctx, "Chunk too large, skipping", "index", chunk.Index, "size", chunk.Size, "limit", t.opts.MaxChunkBytes)
			continue
		}
		g.Go(func() error {
			text, err := t.stt.Recognize(gctx, chunk.Path)
			if err != nil {
				return fmt.Errorf("recognizing chunk %d/%d: %w", chunk.Index+1, len(chunks), err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildSegments(texts, len(chunks), t.opts.ChunkSeconds), nil
}

// silent reports whether the probe found no audio stream or a zero duration.
// Probe failures of any other kind fall through to the splitter.
func (t *Transcriber) silent(ctx context.Context, audioPath string) bool {
	prober, ok := t.splitter.(Prober)
	if !ok {
		return false
	}
	meta, err := prober.GetMetadata(ctx, audioPath)
	if err != nil {
		if errors.Is(err, ffmpeg.ErrInvalidAudioFile) {
			return true
		}
		slog.DebugContext(ctx, "Probe failed", "path", audioPath, logging.ErrKey, err)
		return false
	}
	return meta.Duration <= 0
}

func buildSegments(texts []string, chunkCount, chunkSeconds int) []models.Segment {
	parts := make([]string, 0, len(texts))
	for _, txt := range texts {
		if txt = strings.TrimSpace(txt); txt != "" {
			parts = append(parts, txt)
		}
	}
	full := strings.Join(parts, " ")
	if full == "" {
		return []models.Segment{}
	}
	return []models.Segment{{
		Text:  full,
		Start: 0,
		End:   float64(chunkCount * chunkSeconds),
	}}
}
