package logger

import (
	"bytes"
	"proxysaringan/internal/shared/types"
	"strings"
	"testing"
)

func TestInitWithWriter_LevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(types.LogConf{Level: "warn"}, &buf); err != nil {
		t.Fatalf("InitWithWriter() returned an error: %v", err)
	}
	defer InitWithWriter(types.LogConf{Level: "info"}, &bytes.Buffer{})

	Info().Msg("hidden info line")
	l := WithComponent("ProxyPool/Manager")
	l.Warn().Msg("visible warn line")

	out := buf.String()
	if strings.Contains(out, "hidden info line") {
		t.Errorf("Expected info to be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "visible warn line") || !strings.Contains(out, "ProxyPool/Manager") {
		t.Errorf("Expected warn line with component, got %q", out)
	}
}

func TestInitWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(types.LogConf{Level: "chatty"}, &buf); err != nil {
		t.Fatalf("InitWithWriter() returned an error: %v", err)
	}
	defer InitWithWriter(types.LogConf{Level: "info"}, &bytes.Buffer{})

	Debug().Msg("debug line")
	Info().Str("proxy", "1.2.3.4:80").Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Errorf("Expected debug to be filtered, got %q", out)
	}
	if !strings.Contains(out, "info line") || !strings.Contains(out, "1.2.3.4:80") {
		t.Errorf("Expected info line with field, got %q", out)
	}
}
