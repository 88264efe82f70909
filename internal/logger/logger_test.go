package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriterFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "plura-proxy", "warn")

	log.Info().Msg("dropped")
	log.Warn().Str("msg_id", "m1").Msg("kept")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "plura-proxy" {
		t.Errorf("expected service field, got %v", line["service"])
	}
	if line["msg_id"] != "m1" {
		t.Errorf("expected msg_id field, got %v", line["msg_id"])
	}
	if _, ok := line["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestErrorStackIncluded(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "plura-proxy", "info")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json log: %v\n%s", err, buf.String())
	}
	if _, ok := line["stack"]; !ok {
		t.Fatalf("expected stack field in error log: %s", buf.String())
	}
	if line["level"] != "error" {
		t.Errorf("expected level=error, got %v", line["level"])
	}
}

func TestStackMarshalerOverrideKept(t *testing.T) {
	NewWithWriter(&bytes.Buffer{}, "plura-proxy", "info")

	prev := zerolog.ErrorStackMarshaler
	defer func() { zerolog.ErrorStackMarshaler = prev }()
	zerolog.ErrorStackMarshaler = func(error) interface{} { return "custom" }

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "plura-proxy", "info")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json log: %v\n%s", err, buf.String())
	}
	if line["stack"] != "custom" {
		t.Errorf("expected custom stack marshaler to survive, got %v", line["stack"])
	}
}
