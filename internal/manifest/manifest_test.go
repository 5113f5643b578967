package manifest

import (
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/devrig/devrig/internal/substituter"
)

// endpoint builds a minimal http substituter endpoint for tests.
func endpoint(name, url string) substituter.EndpointConfig {
	return substituter.EndpointConfig{Name: name, URL: url}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		cfg := LoggingConfig{Level: tt.level}
		if got := cfg.ParseLevel(); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestProvisionDefaults(t *testing.T) {
	t.Parallel()

	var cfg ProvisionConfig
	if got := cfg.GetJobs(); got != DefaultJobs {
		t.Errorf("GetJobs() = %d, want %d", got, DefaultJobs)
	}
	if cfg.GetTimeoutOption().IsPresent() {
		t.Error("Expected no timeout by default")
	}

	cfg = ProvisionConfig{Jobs: 8, TimeoutMS: 5000}
	if got := cfg.GetJobs(); got != 8 {
		t.Errorf("GetJobs() = %d, want 8", got)
	}
	if v, ok := cfg.GetTimeoutOption().Get(); !ok || v != 5000 {
		t.Errorf("GetTimeoutOption() = %v/%v, want 5000", v, ok)
	}

	if cfg.LookupRace {
		t.Error("Expected lookup_race off by default")
	}
}

func TestProvisionLookupRaceParsed(t *testing.T) {
	t.Parallel()

	doc := `
name = "race"

[packages]
base = ["git"]

[provision]
jobs = 2
lookup_race = true
`
	m, err := LoadFromReader(strings.NewReader(doc), FormatTOML)
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if !m.Provision.LookupRace {
		t.Error("Expected provision.lookup_race to parse as true")
	}
}

func TestLanguageChannelDefault(t *testing.T) {
	t.Parallel()

	lang := LanguageConfig{Enable: true}
	if got := lang.GetChannel(); got != "stable" {
		t.Errorf("GetChannel() = %q, want stable", got)
	}
	lang.Channel = "nightly"
	if got := lang.GetChannel(); got != "nightly" {
		t.Errorf("GetChannel() = %q, want nightly", got)
	}
}

func TestRuntimeConcurrentAccess(t *testing.T) {
	t.Parallel()

	first := &Manifest{Name: "first"}
	second := &Manifest{Name: "second"}
	rt := NewRuntime(first)

	if rt.Get().Name != "first" {
		t.Fatal("initial manifest not visible")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m := rt.Get()
				if m.Name != "first" && m.Name != "second" {
					t.Errorf("observed torn manifest %q", m.Name)
					return
				}
			}
		}()
	}

	rt.Store(second)
	wg.Wait()

	if rt.Get().Name != "second" {
		t.Error("stored manifest not visible")
	}
}
