package substituter_test

import (
	"strings"
	"testing"

	"github.com/devrig/devrig/internal/substituter"
)

const sampleNarInfo = `StorePath: /nix/store/abc123-sccache-0.8.1
URL: nar/abc123.nar.xz
Compression: xz
FileHash: sha256:0f1c4...
FileSize: 4194304
NarHash: sha256:1a2b3c...
NarSize: 16777216
References: abc123-sccache-0.8.1 def456-openssl-3.2
Deriver: xyz789-sccache-0.8.1.drv
Sig: cache.nixos.org-1:ZmFrZXNpZw==
`

func TestParseNarInfo(t *testing.T) {
	t.Parallel()

	info, err := substituter.ParseNarInfo(strings.NewReader(sampleNarInfo))
	if err != nil {
		t.Fatalf("ParseNarInfo failed: %v", err)
	}

	if info.StorePath != "/nix/store/abc123-sccache-0.8.1" {
		t.Errorf("StorePath = %q", info.StorePath)
	}
	if info.URL != "nar/abc123.nar.xz" {
		t.Errorf("URL = %q", info.URL)
	}
	if info.Compression != "xz" {
		t.Errorf("Compression = %q", info.Compression)
	}
	if info.FileSize != 4194304 {
		t.Errorf("FileSize = %d", info.FileSize)
	}
	if info.NarSize != 16777216 {
		t.Errorf("NarSize = %d", info.NarSize)
	}
	if len(info.References) != 2 {
		t.Fatalf("expected 2 references, got %d", len(info.References))
	}
	if info.References[1] != "def456-openssl-3.2" {
		t.Errorf("References[1] = %q", info.References[1])
	}
	if info.Sig == "" {
		t.Error("expected Sig to be parsed")
	}
}

func TestParseNarInfoIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	input := sampleNarInfo + "SomeFutureKey: hello\n"
	if _, err := substituter.ParseNarInfo(strings.NewReader(input)); err != nil {
		t.Errorf("expected unknown keys to be ignored, got %v", err)
	}
}

func TestParseNarInfoMissingRequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"missing StorePath", "URL: nar/a.nar.xz\nNarHash: sha256:aa\n"},
		{"missing URL", "StorePath: /nix/store/a\nNarHash: sha256:aa\n"},
		{"missing NarHash", "StorePath: /nix/store/a\nURL: nar/a.nar.xz\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := substituter.ParseNarInfo(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error for incomplete narinfo")
			}
		})
	}
}

func TestParseNarInfoMalformedLine(t *testing.T) {
	t.Parallel()

	if _, err := substituter.ParseNarInfo(strings.NewReader("not a narinfo line\n")); err == nil {
		t.Error("expected error for line without separator")
	}
}

func TestParseNarInfoBadSize(t *testing.T) {
	t.Parallel()

	input := "StorePath: /nix/store/a\nURL: nar/a.nar.xz\nNarHash: sha256:aa\nNarSize: lots\n"
	if _, err := substituter.ParseNarInfo(strings.NewReader(input)); err == nil {
		t.Error("expected error for non-numeric NarSize")
	}
}

func TestNarInfoFormatRoundTrip(t *testing.T) {
	t.Parallel()

	info, err := substituter.ParseNarInfo(strings.NewReader(sampleNarInfo))
	if err != nil {
		t.Fatalf("ParseNarInfo failed: %v", err)
	}

	reparsed, err := substituter.ParseNarInfo(strings.NewReader(info.Format()))
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}

	if reparsed.StorePath != info.StorePath || reparsed.URL != info.URL || reparsed.NarHash != info.NarHash {
		t.Error("Format output did not survive a reparse")
	}
	if len(reparsed.References) != len(info.References) {
		t.Errorf("references changed: %d != %d", len(reparsed.References), len(info.References))
	}
}
