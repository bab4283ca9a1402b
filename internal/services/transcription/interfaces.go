package transcription

import (
	"context"

	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/pkg/ffmpeg"
)

// STTClient recognizes speech in one short audio file
type STTClient interface {
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// Splitter cuts an audio file into mono chunks
type Splitter interface {
	SplitMono(ctx context.Context, input, outDir string, opts ffmpeg.SplitOptions) ([]ffmpeg.Chunk, error)
}

// Prober reads container metadata. Splitters that also probe let empty tracks skip recognition.
type Prober interface {
	GetMetadata(ctx context.Context, path string) (*ffmpeg.AudioMetadata, error)
}

// Service turns a downloaded track into transcript segments
type Service interface {
	Transcribe(ctx context.Context, audioPath string) ([]models.Segment, error)
}
