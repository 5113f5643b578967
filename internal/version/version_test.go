package version_test

import (
	"strings"
	"testing"

	"github.com/devrig/devrig/internal/version"
)

func TestDefaults(t *testing.T) {
	if version.Version == "" {
		t.Error("Version is empty")
	}
	if version.Commit == "" {
		t.Error("Commit is empty")
	}
	if version.BuildDate == "" {
		t.Error("BuildDate is empty")
	}
}

func TestString(t *testing.T) {
	s := version.String()
	if !strings.Contains(s, version.Version) {
		t.Errorf("String() = %q, missing version", s)
	}
	if !strings.Contains(s, version.Commit) {
		t.Errorf("String() = %q, missing commit", s)
	}
	if !strings.Contains(s, version.BuildDate) {
		t.Errorf("String() = %q, missing build date", s)
	}
}
