package egress

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c := NewClient(Config{URL: "wss://media.example.com/", APIKey: "key", APISecret: "secret"})

	assert.Equal(t, "https://media.example.com", c.baseURL)
	assert.Equal(t, 15*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 10*time.Minute, c.tokenTTL)

	c = NewClient(Config{URL: "ws://localhost:7880"})
	assert.Equal(t, "http://localhost:7880", c.baseURL)
}

func TestSignToken(t *testing.T) {
	now := time.Now()
	raw, err := signToken("key", "secret", time.Minute, now)
	require.NoError(t, err)

	claims := &accessClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	assert.Equal(t, "key", claims.Issuer)
	assert.True(t, claims.Video.RoomRecord)
}

type capturedRequest struct {
	path string
	auth string
	body map[string]interface{}
}

func newEgressServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestStartRoomCompositeEgress(t *testing.T) {
	srv, captured := newEgressServer(t, http.StatusOK, `{"egressId":"EG_room1","roomName":"m-1","status":"EGRESS_STARTING"}`)
	c := NewClient(Config{URL: srv.URL, APIKey: "key", APISecret: "secret"})

	out := NewOutputBuilder(&S3Upload{Bucket: "recordings", ForcePathStyle: true}).Composite("m-1")
	info, err := c.StartRoomCompositeEgress(context.Background(), "m-1", out)
	require.NoError(t, err)

	assert.Equal(t, "EG_room1", info.EgressID)
	assert.Equal(t, "m-1", info.RoomName)
	assert.Equal(t, "EGRESS_STARTING", info.Status)

	assert.Equal(t, "/twirp/livekit.Egress/StartRoomCompositeEgress", captured.path)
	require.True(t, strings.HasPrefix(captured.auth, "Bearer "))

	claims := &accessClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimPrefix(captured.auth, "Bearer "), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "key", claims.Issuer)
	assert.True(t, claims.Video.RoomRecord)

	assert.Equal(t, "m-1", captured.body["room_name"])
	outputs := captured.body["file_outputs"].([]interface{})
	require.Len(t, outputs, 1)
	first := outputs[0].(map[string]interface{})
	assert.Equal(t, "recordings/m-1/{room_name}-{time}.mp4", first["filepath"])
	assert.Equal(t, "MP4", first["file_type"])
	assert.Equal(t, "recordings", first["s3"].(map[string]interface{})["bucket"])
}

func TestStartTrackEgress(t *testing.T) {
	srv, captured := newEgressServer(t, http.StatusOK, `{"egress_id":"EG_track1","room_name":"m-1","status":0}`)
	c := NewClient(Config{URL: srv.URL, APIKey: "key", APISecret: "secret"})

	info, err := c.StartTrackEgress(context.Background(), "m-1", "TR_abc", NewOutputBuilder(nil).Track("m-1"))
	require.NoError(t, err)

	assert.Equal(t, "EG_track1", info.EgressID)
	assert.Equal(t, "0", info.Status)
	assert.Equal(t, "/twirp/livekit.Egress/StartTrackEgress", captured.path)
	assert.Equal(t, "TR_abc", captured.body["track_id"])

	file := captured.body["file"].(map[string]interface{})
	assert.Equal(t, "recordings/m-1/audio/{publisher_identity}-{time}.ogg", file["filepath"])
	_, hasType := file["file_type"]
	assert.False(t, hasType, "track egress writes the native codec")
}

func TestStartParticipantEgress(t *testing.T) {
	srv, captured := newEgressServer(t, http.StatusOK, `{"egressId":"EG_p1"}`)
	c := NewClient(Config{URL: srv.URL, APIKey: "key", APISecret: "secret"})

	info, err := c.StartParticipantEgress(context.Background(), "m-1", "alice", NewOutputBuilder(nil).Track("m-1"))
	require.NoError(t, err)

	assert.Equal(t, "EG_p1", info.EgressID)
	assert.Equal(t, "/twirp/livekit.Egress/StartParticipantEgress", captured.path)
	assert.Equal(t, "alice", captured.body["identity"])
}

func TestStopEgress(t *testing.T) {
	srv, captured := newEgressServer(t, http.StatusOK, `{"egressId":"EG_room1","status":"EGRESS_ENDING"}`)
	c := NewClient(Config{URL: srv.URL, APIKey: "key", APISecret: "secret"})

	info, err := c.StopEgress(context.Background(), "EG_room1")
	require.NoError(t, err)
	assert.Equal(t, "EGRESS_ENDING", info.Status)
	assert.Equal(t, "/twirp/livekit.Egress/StopEgress", captured.path)
	assert.Equal(t, "EG_room1", captured.body["egress_id"])
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		response     string
		wantCode     string
		wantNotFound bool
	}{
		{
			name:         "twirp not found",
			status:       http.StatusNotFound,
			response:     `{"code":"not_found","msg":"egress does not exist"}`,
			wantCode:     "not_found",
			wantNotFound: true,
		},
		{
			name:     "twirp unauthenticated",
			status:   http.StatusUnauthorized,
			response: `{"code":"unauthenticated","msg":"invalid token"}`,
			wantCode: "unauthenticated",
		},
		{
			name:     "plain text body",
			status:   http.StatusBadGateway,
			response: "upstream down",
			wantCode: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newEgressServer(t, tt.status, tt.response)
			c := NewClient(Config{URL: srv.URL, APIKey: "key", APISecret: "secret"})

			_, err := c.StopEgress(context.Background(), "EG_x")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantNotFound, apiErr.IsNotFound())
		})
	}
}

func TestStartWithoutEgressID(t *testing.T) {
	srv, _ := newEgressServer(t, http.StatusOK, `{}`)
	c := NewClient(Config{URL: srv.URL, APIKey: "key", APISecret: "secret"})

	_, err := c.StartRoomCompositeEgress(context.Background(), "m-1", NewOutputBuilder(nil).Composite("m-1"))
	assert.Error(t, err)
}

func TestUploadFromStorage(t *testing.T) {
	assert.Nil(t, UploadFromStorage(config.StorageConfig{}))

	up := UploadFromStorage(config.StorageConfig{
		Endpoint:         "localhost:9000",
		InternalEndpoint: "minio:9000",
		AccessKey:        "ak",
		SecretKey:        "sk",
		Bucket:           "recordings",
		Region:           "us-east-1",
	})
	require.NotNil(t, up)
	assert.Equal(t, "http://minio:9000", up.Endpoint)
	assert.True(t, up.ForcePathStyle)
	assert.Equal(t, "sk", up.Secret)

	up = UploadFromStorage(config.StorageConfig{Endpoint: "s3.example.com", Bucket: "b", UseSSL: true})
	assert.Equal(t, "https://s3.example.com", up.Endpoint)
}
