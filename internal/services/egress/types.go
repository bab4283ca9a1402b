package egress

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FileType is the container of a composite recording
type FileType string

const (
	FileTypeMP4 FileType = "MP4"
	FileTypeOGG FileType = "OGG"
)

// S3Upload tells the egress worker where to upload the finished file
type S3Upload struct {
	AccessKey      string `json:"access_key"`
	Secret         string `json:"secret"`
	Region         string `json:"region,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	Bucket         string `json:"bucket"`
	ForcePathStyle bool   `json:"force_path_style"`
}

// FileOutput describes one output file. FileType is ignored by track egress,
// which always writes the track's native codec.
type FileOutput struct {
	FileType FileType  `json:"file_type,omitempty"`
	Filepath string    `json:"filepath"`
	S3       *S3Upload `json:"s3,omitempty"`
}

// Info is the subset of the media server's egress description the service needs
type Info struct {
	EgressID string
	RoomName string
	Status   string
	Error    string
}

// UnmarshalJSON accepts both proto field names and their camelCase JSON names
func (i *Info) UnmarshalJSON(data []byte) error {
	var raw struct {
		EgressID      string          `json:"egress_id"`
		EgressIDCamel string          `json:"egressId"`
		RoomName      string          `json:"room_name"`
		RoomNameCamel string          `json:"roomName"`
		Status        json.RawMessage `json:"status"`
		Error         string          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.EgressID = firstNonEmpty(raw.EgressID, raw.EgressIDCamel)
	i.RoomName = firstNonEmpty(raw.RoomName, raw.RoomNameCamel)
	i.Error = raw.Error
	i.Status = enumString(raw.Status)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// enumString renders a protojson enum that may arrive as a name or a number
func enumString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// Error is a Twirp error returned by the egress API
type Error struct {
	Status int    `json:"-"`
	Code   string `json:"code"`
	Msg    string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("egress api %d %s: %s", e.Status, e.Code, e.Msg)
}

// IsNotFound reports whether the egress no longer exists on the media server
func (e *Error) IsNotFound() bool {
	return e.Code == "not_found"
}

type roomCompositeRequest struct {
	RoomName    string       `json:"room_name"`
	Layout      string       `json:"layout,omitempty"`
	AudioOnly   bool         `json:"audio_only"`
	FileOutputs []FileOutput `json:"file_outputs"`
}

type trackRequest struct {
	RoomName string      `json:"room_name"`
	TrackID  string      `json:"track_id"`
	File     *FileOutput `json:"file"`
}

type participantRequest struct {
	RoomName    string       `json:"room_name"`
	Identity    string       `json:"identity"`
	ScreenShare bool         `json:"screen_share"`
	FileOutputs []FileOutput `json:"file_outputs"`
}

type stopRequest struct {
	EgressID string `json:"egress_id"`
}
