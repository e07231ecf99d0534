package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	for _, dropped := range []string{"debug 1", "info 2"} {
		if strings.Contains(out, dropped) {
			t.Errorf("\n%q should have been filtered from %q", dropped, out)
		}
	}
	for _, kept := range []string{"warn 3", "error 4"} {
		if !strings.Contains(out, kept) {
			t.Errorf("\n%q missing from %q", kept, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	var tests = []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("\ngot %v, wanted %v", got, tt.want)
			}
		})
	}
}
