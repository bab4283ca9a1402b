// Package transcript renders speaker transcripts as subtitle and text files.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// Format is an export format of a transcript
type Format string

const (
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat accepts a format name or a file extension; empty means text
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "text", "txt":
		return FormatText, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "srt":
		return FormatSRT, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported transcript format: %q", s)
	}
}

// ContentType is the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatSRT:
		return "application/x-subrip; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension is the file extension for f, without the dot
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Segment is one timed piece of speech
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcript is the speech of one speaker
type Transcript struct {
	Speaker  string
	Segments []Segment
}

// Seconds converts an offset in seconds to a duration rounded to the millisecond
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}

// PlainText joins the non-empty segment texts with single spaces
func (t *Transcript) PlainText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Write renders t in format f
func (t *Transcript) Write(w io.Writer, f Format) error {
	switch f {
	case FormatVTT:
		return t.writeVTT(w)
	case FormatSRT:
		return t.writeSRT(w)
	case FormatJSON:
		return t.writeJSON(w)
	case FormatText:
		_, err := io.WriteString(w, t.PlainText()+"\n")
		return err
	default:
		return fmt.Errorf("unsupported transcript format: %q", f)
	}
}

// cues skips segments without text
func (t *Transcript) cues() []Segment {
	out := make([]Segment, 0, len(t.Segments))
	for _, s := range t.Segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, s)
	}
	return out
}

func (t *Transcript) writeVTT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, c := range t.cues() {
		text := escapeVTT(c.Text)
		if t.Speaker != "" {
			text = fmt.Sprintf("<v %s>%s", escapeVTT(t.Speaker), text)
		}
		fmt.Fprintf(&b, "\n%s --> %s\n%s\n", formatTimestamp(c.Start, '.'), formatTimestamp(c.End, '.'), text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Transcript) writeSRT(w io.Writer) error {
	var b strings.Builder
	for i, c := range t.cues() {
		if i > 0 {
			b.WriteString("\n")
		}
		text := c.Text
		if t.Speaker != "" {
			text = t.Speaker + ": " + text
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, formatTimestamp(c.Start, ','), formatTimestamp(c.End, ','), text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type jsonSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (t *Transcript) writeJSON(w io.Writer) error {
	cues := t.cues()
	doc := struct {
		Speaker  string        `json:"speaker,omitempty"`
		Text     string        `json:"text"`
		Segments []jsonSegment `json:"segments"`
	}{Speaker: t.Speaker, Text: t.PlainText(), Segments: make([]jsonSegment, 0, len(cues))}

	for _, c := range cues {
		doc.Segments = append(doc.Segments, jsonSegment{Start: c.Start.Seconds(), End: c.End.Seconds(), Text: c.Text})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// formatTimestamp renders HH:MM:SS<sep>mmm; VTT uses '.', SRT uses ','
func formatTimestamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%1000)
}

var vttEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "-->", "--&gt;")

func escapeVTT(s string) string {
	return vttEscaper.Replace(s)
}
