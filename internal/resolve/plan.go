package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Plan is a fully resolved environment: the exact packages, languages, and
// env vars to materialize on one platform. Plans are immutable once built.
type Plan struct {
	Name       string            `json:"name,omitempty"`
	Platform   string            `json:"platform"`
	ProfileDir string            `json:"profile_dir"`
	Packages   []string          `json:"packages"`
	Languages  []Language        `json:"languages"`
	Env        map[string]string `json:"env"`

	// Digest is the SHA-256 of the canonical plan encoding, excluding
	// itself. Two plans with equal digests materialize identically.
	Digest string `json:"digest"`
}

// computeDigest hashes the canonical JSON encoding of the plan with the
// digest field blanked. encoding/json emits map keys sorted, which makes
// the encoding canonical without extra work.
func (p *Plan) computeDigest() string {
	shadow := *p
	shadow.Digest = ""

	encoded, err := json.Marshal(&shadow)
	if err != nil {
		// Plan fields are strings, slices, and string maps; Marshal cannot
		// fail on them.
		panic(fmt.Sprintf("resolve: plan encoding: %v", err))
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Encode returns the plan as indented JSON, used by `devrig resolve --json`
// and as the plancache value encoding.
func (p *Plan) Encode() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Decode parses a plan previously written by Encode and verifies its digest.
func Decode(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("resolve: decode plan: %w", err)
	}
	if want := p.computeDigest(); p.Digest != want {
		return nil, fmt.Errorf("resolve: plan digest mismatch (stored %s, computed %s)", p.Digest, want)
	}
	return &p, nil
}

// HasLanguage reports whether the plan activates the named language.
func (p *Plan) HasLanguage(name string) bool {
	for _, lang := range p.Languages {
		if lang.Name == name {
			return true
		}
	}
	return false
}
