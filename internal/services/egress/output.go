package egress

import (
	"fmt"
	"strings"

	"github.com/killallgit/meeting-recorder/pkg/config"
)

// Filename templates expanded by the egress worker at upload time
const (
	compositeTemplate = "recordings/%s/{room_name}-{time}.mp4"
	trackTemplate     = "recordings/%s/audio/{publisher_identity}-{time}.ogg"
)

// OutputBuilder produces file outputs that upload into the recordings bucket
type OutputBuilder struct {
	upload *S3Upload
}

// NewOutputBuilder returns a builder; a nil upload leaves storage to the egress worker's defaults
func NewOutputBuilder(upload *S3Upload) *OutputBuilder {
	return &OutputBuilder{upload: upload}
}

// Composite is the room mix of a meeting
func (b *OutputBuilder) Composite(meetingID string) FileOutput {
	return FileOutput{
		FileType: FileTypeMP4,
		Filepath: fmt.Sprintf(compositeTemplate, meetingID),
		S3:       b.upload,
	}
}

// Track is the isolated audio of one speaker
func (b *OutputBuilder) Track(meetingID string) FileOutput {
	return FileOutput{
		FileType: FileTypeOGG,
		Filepath: fmt.Sprintf(trackTemplate, meetingID),
		S3:       b.upload,
	}
}

// UploadFromStorage points the egress worker at the recordings bucket. The
// internal endpoint is preferred because egress runs next to the object store.
func UploadFromStorage(cfg config.StorageConfig) *S3Upload {
	if cfg.Bucket == "" {
		return nil
	}
	endpoint := cfg.InternalEndpoint
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	return &S3Upload{
		AccessKey:      cfg.AccessKey,
		Secret:         cfg.SecretKey,
		Region:         cfg.Region,
		Endpoint:       endpoint,
		Bucket:         cfg.Bucket,
		ForcePathStyle: true,
	}
}
