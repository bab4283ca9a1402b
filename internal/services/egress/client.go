// Package egress talks to the media server's recording (egress) API.
package egress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/killallgit/meeting-recorder/internal/services/egress"

const servicePath = "/twirp/livekit.Egress/"

// Client starts and stops recordings on the media server
type Client interface {
	StartRoomCompositeEgress(ctx context.Context, roomName string, output FileOutput) (*Info, error)
	StartTrackEgress(ctx context.Context, roomName, trackSID string, output FileOutput) (*Info, error)
	StartParticipantEgress(ctx context.Context, roomName, identity string, output FileOutput) (*Info, error)
	StopEgress(ctx context.Context, egressID string) (*Info, error)
}

// Config holds configuration for the egress client
type Config struct {
	URL       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	TokenTTL  time.Duration
}

// HTTPClient calls the Twirp JSON endpoints of the egress service
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	tokenTTL   time.Duration
}

// NewClient creates a new egress API client
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 10 * time.Minute
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   httpBaseURL(cfg.URL),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		tokenTTL:  cfg.TokenTTL,
	}
}

// httpBaseURL maps the websocket URL handed to browsers onto its HTTP twin
func httpBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	}
	return u
}

func (c *HTTPClient) StartRoomCompositeEgress(ctx context.Context, roomName string, output FileOutput) (*Info, error) {
	if output.FileType == "" {
		output.FileType = FileTypeMP4
	}
	req := roomCompositeRequest{RoomName: roomName, FileOutputs: []FileOutput{output}}
	return c.call(ctx, "StartRoomCompositeEgress", req, attribute.String("room", roomName))
}

func (c *HTTPClient) StartTrackEgress(ctx context.Context, roomName, trackSID string, output FileOutput) (*Info, error) {
	output.FileType = ""
	req := trackRequest{RoomName: roomName, TrackID: trackSID, File: &output}
	return c.call(ctx, "StartTrackEgress", req,
		attribute.String("room", roomName), attribute.String("track_sid", trackSID))
}

func (c *HTTPClient) StartParticipantEgress(ctx context.Context, roomName, identity string, output FileOutput) (*Info, error) {
	if output.FileType == "" {
		output.FileType = FileTypeOGG
	}
	req := participantRequest{RoomName: roomName, Identity: identity, FileOutputs: []FileOutput{output}}
	return c.call(ctx, "StartParticipantEgress", req,
		attribute.String("room", roomName), attribute.String("identity", identity))
}

func (c *HTTPClient) StopEgress(ctx context.Context, egressID string) (*Info, error) {
	return c.call(ctx, "StopEgress", stopRequest{EgressID: egressID}, attribute.String("egress_id", egressID))
}

// call performs one Twirp request and decodes the EgressInfo response
func (c *HTTPClient) call(ctx context.Context, method string, body interface{}, attrs ...attribute.KeyValue) (*Info, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "egress."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	info, err := c.do(ctx, method, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("egress_id", info.EgressID))
	return info, nil
}

func (c *HTTPClient) do(ctx context.Context, method string, body interface{}) (*Info, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+servicePath+method, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	token, err := signToken(c.apiKey, c.apiSecret, c.tokenTTL, time.Now())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = "unknown"
			apiErr.Msg = strings.TrimSpace(string(raw))
		}
		slog.WarnContext(ctx, "egress api error", "method", method, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if info.EgressID == "" && method != "StopEgress" {
		return nil, fmt.Errorf("%s response carried no egress id", method)
	}
	return &info, nil
}
