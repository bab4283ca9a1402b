package ffmpeg

// AudioMetadata represents metadata extracted from an audio file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`
	Bitrate    int     `json:"bitrate"` // Bitrate in bits per second
	Format     string  `json:"format"`  // Container format (ogg, mov,mp4,...)
	Codec      string  `json:"codec"`
	Size       int64   `json:"size"`
}

// SplitOptions controls segmenting for speech-to-text upload
type SplitOptions struct {
	SegmentSeconds int
	Bitrate        string
}

// DefaultSplitOptions returns 25 second segments at 32 kbit/s, small enough for
// synchronous recognition APIs that cap requests at 30 seconds and 1 MiB
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{SegmentSeconds: 25, Bitrate: "32k"}
}

func (o SplitOptions) withDefaults() SplitOptions {
	d := DefaultSplitOptions()
	if o.SegmentSeconds <= 0 {
		o.SegmentSeconds = d.SegmentSeconds
	}
	if o.Bitrate == "" {
		o.Bitrate = d.Bitrate
	}
	return o
}

// Chunk is one segment file on disk
type Chunk struct {
	Index int
	Path  string
	Size  int64
	Start float64
	End   float64
}
