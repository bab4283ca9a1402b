package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Event types the recorder listens to
const (
	EventRoomStarted       = "room_started"
	EventRoomFinished      = "room_finished"
	EventParticipantJoined = "participant_joined"
	EventTrackPublished    = "track_published"
	EventEgressEnded       = "egress_ended"
)

// Int64 decodes from a JSON number or a decimal string, as protojson writes 64-bit integers
type Int64 int64

func (i *Int64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Durations and sizes never have fractions, but tolerate 1e9-style numbers.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %s", data)
		}
		n = int64(f)
	}
	*i = Int64(n)
	return nil
}

// enum decodes a protobuf enum given either as its name, in any case, or its number
type enum struct {
	names []string
	value *string
}

func (e enum) decode(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e.value = strings.ToUpper(strings.TrimSpace(s))
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid enum value %s", data)
	}
	if n >= 0 && n < len(e.names) {
		*e.value = e.names[n]
	} else {
		*e.value = strconv.Itoa(n)
	}
	return nil
}

// TrackType is the media kind of a track
type TrackType string

const (
	TrackTypeAudio TrackType = "AUDIO"
	TrackTypeVideo TrackType = "VIDEO"
)

func (t *TrackType) UnmarshalJSON(data []byte) error {
	var s string
	if err := (enum{names: []string{"AUDIO", "VIDEO", "DATA"}, value: &s}).decode(data); err != nil {
		return err
	}
	*t = TrackType(s)
	return nil
}

// TrackSource is the device a track was captured from
type TrackSource string

const (
	SourceUnknown          TrackSource = "UNKNOWN"
	SourceCamera           TrackSource = "CAMERA"
	SourceMicrophone       TrackSource = "MICROPHONE"
	SourceScreenShare      TrackSource = "SCREEN_SHARE"
	SourceScreenShareAudio TrackSource = "SCREEN_SHARE_AUDIO"
)

func (t *TrackSource) UnmarshalJSON(data []byte) error {
	var s string
	names := []string{"UNKNOWN", "CAMERA", "MICROPHONE", "SCREEN_SHARE", "SCREEN_SHARE_AUDIO"}
	if err := (enum{names: names, value: &s}).decode(data); err != nil {
		return err
	}
	*t = TrackSource(s)
	return nil
}

// EgressStatus is the lifecycle state of an egress
type EgressStatus string

const (
	EgressComplete     EgressStatus = "EGRESS_COMPLETE"
	EgressFailed       EgressStatus = "EGRESS_FAILED"
	EgressAborted      EgressStatus = "EGRESS_ABORTED"
	EgressLimitReached EgressStatus = "EGRESS_LIMIT_REACHED"
)

func (t *EgressStatus) UnmarshalJSON(data []byte) error {
	var s string
	names := []string{
		"EGRESS_STARTING", "EGRESS_ACTIVE", "EGRESS_ENDING", "EGRESS_COMPLETE",
		"EGRESS_FAILED", "EGRESS_ABORTED", "EGRESS_LIMIT_REACHED",
	}
	if err := (enum{names: names, value: &s}).decode(data); err != nil {
		return err
	}
	*t = EgressStatus(s)
	return nil
}

// Room identifies the media room; its name is the meeting ID
type Room struct {
	Name string `json:"name"`
	SID  string `json:"sid"`
}

// Participant is the publisher of a track or the joining user
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	SID      string `json:"sid"`
}

// Track is a published media track
type Track struct {
	SID    string      `json:"sid"`
	Type   TrackType   `json:"type"`
	Source TrackSource `json:"source"`
}

// FileResult describes one file written by an egress
type FileResult struct {
	Filename string
	Location string
	Size     int64
	Duration int64 // nanoseconds
}

func (f *FileResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Filename string `json:"filename"`
		Location string `json:"location"`
		Size     Int64  `json:"size"`
		Duration Int64  `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FileResult{Filename: raw.Filename, Location: raw.Location, Size: int64(raw.Size), Duration: int64(raw.Duration)}
	return nil
}

// EgressInfo is the final description of an egress
type EgressInfo struct {
	EgressID    string
	RoomName    string
	Status      EgressStatus
	Error       string
	FileResults []FileResult
}

// UnmarshalJSON accepts camelCase JSON names and proto field names
func (e *EgressInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		EgressID         string       `json:"egressId"`
		EgressIDSnake    string       `json:"egress_id"`
		RoomName         string       `json:"roomName"`
		RoomNameSnake    string       `json:"room_name"`
		Status           EgressStatus `json:"status"`
		Error            string       `json:"error"`
		FileResults      []FileResult `json:"fileResults"`
		FileResultsSnake []FileResult `json:"file_results"`
		File             *FileResult  `json:"file"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.EgressID = firstNonEmpty(raw.EgressID, raw.EgressIDSnake)
	e.RoomName = firstNonEmpty(raw.RoomName, raw.RoomNameSnake)
	e.Status = raw.Status
	e.Error = raw.Error
	e.FileResults = raw.FileResults
	if len(e.FileResults) == 0 {
		e.FileResults = raw.FileResultsSnake
	}
	if len(e.FileResults) == 0 && raw.File != nil {
		e.FileResults = []FileResult{*raw.File}
	}
	return nil
}

// FirstFile returns the first file result, if any
func (e *EgressInfo) FirstFile() *FileResult {
	if e == nil || len(e.FileResults) == 0 {
		return nil
	}
	return &e.FileResults[0]
}

// Event is the webhook envelope
type Event struct {
	Event       string
	ID          string
	CreatedAt   int64
	Room        *Room
	Participant *Participant
	Track       *Track
	EgressInfo  *EgressInfo
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Event           string       `json:"event"`
		ID              string       `json:"id"`
		CreatedAt       Int64        `json:"createdAt"`
		CreatedAtSnake  Int64        `json:"created_at"`
		Room            *Room        `json:"room"`
		Participant     *Participant `json:"participant"`
		Track           *Track       `json:"track"`
		EgressInfo      *EgressInfo  `json:"egressInfo"`
		EgressInfoSnake *EgressInfo  `json:"egress_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Event{
		Event:       raw.Event,
		ID:          raw.ID,
		CreatedAt:   int64(raw.CreatedAt),
		Room:        raw.Room,
		Participant: raw.Participant,
		Track:       raw.Track,
		EgressInfo:  raw.EgressInfo,
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = int64(raw.CreatedAtSnake)
	}
	if e.EgressInfo == nil {
		e.EgressInfo = raw.EgressInfoSnake
	}
	return nil
}

// RoomName returns the room of the event, falling back to the egress room
func (e *Event) RoomName() string {
	if e.Room != nil && e.Room.Name != "" {
		return e.Room.Name
	}
	if e.EgressInfo != nil {
		return e.EgressInfo.RoomName
	}
	return ""
}

// Decode parses a webhook body
func Decode(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decoding webhook event: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("decoding webhook event: missing event type")
	}
	return &event, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
