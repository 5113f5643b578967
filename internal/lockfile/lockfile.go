// Package lockfile pins resolved plans to the project so teammates and CI
// can detect drift between the committed environment and a fresh
// resolution. The lock is a JSON document keyed by platform; entries for
// platforms this host never resolves are preserved verbatim when patching.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/devrig/devrig/internal/resolve"
)

// FileName is the conventional lock file name at the project root.
const FileName = "devrig.lock"

// formatVersion guards against reading locks written by a newer tool.
const formatVersion = 1

// Errors reported while reading a lock.
var (
	ErrCorrupt            = errors.New("lockfile: not valid JSON")
	ErrUnsupportedVersion = errors.New("lockfile: unsupported format version")
)

// Entry is the recorded resolution for one platform.
type Entry struct {
	Digest     string    `json:"digest"`
	Packages   []string  `json:"packages"`
	Languages  []string  `json:"languages"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Load reads the raw lock document. A missing file yields an empty
// document rather than an error so Record can bootstrap it.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("lockfile: read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrCorrupt
	}
	if v := gjson.GetBytes(data, "version"); v.Exists() && v.Int() > formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v.Int())
	}
	return data, nil
}

// Lookup returns the recorded entry for a platform, if any.
func Lookup(data []byte, platform string) (Entry, bool) {
	node := gjson.GetBytes(data, entryPath(platform))
	if !node.Exists() {
		return Entry{}, false
	}

	entry := Entry{
		Digest: node.Get("digest").String(),
	}
	for _, pkg := range node.Get("packages").Array() {
		entry.Packages = append(entry.Packages, pkg.String())
	}
	for _, lang := range node.Get("languages").Array() {
		entry.Languages = append(entry.Languages, lang.String())
	}
	if ts := node.Get("resolved_at"); ts.Exists() {
		entry.ResolvedAt, _ = time.Parse(time.RFC3339, ts.String())
	}
	return entry, true
}

// Record patches the lock with the plan's resolution for its platform and
// writes it back atomically. Other platforms' entries are untouched.
func Record(path string, plan *resolve.Plan) error {
	data, err := Load(path)
	if err != nil {
		return err
	}

	languages := make([]string, 0, len(plan.Languages))
	for _, lang := range plan.Languages {
		languages = append(languages, lang.Name+"@"+lang.Channel)
	}

	patches := []struct {
		path  string
		value any
	}{
		{"version", formatVersion},
		{"name", plan.Name},
		{entryPath(plan.Platform) + ".digest", plan.Digest},
		{entryPath(plan.Platform) + ".packages", plan.Packages},
		{entryPath(plan.Platform) + ".languages", languages},
		{entryPath(plan.Platform) + ".resolved_at", time.Now().UTC().Format(time.RFC3339)},
	}
	for _, patch := range patches {
		data, err = sjson.SetBytes(data, patch.path, patch.value)
		if err != nil {
			return fmt.Errorf("lockfile: patch %s: %w", patch.path, err)
		}
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return nil
}

// entryPath builds the gjson path for a platform key. Platform strings
// contain "/" but never ".", so no escaping is needed.
func entryPath(platform string) string {
	return "platforms." + platform
}
