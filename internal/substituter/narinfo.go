package substituter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NarInfo describes a prebuilt artifact advertised by a binary cache.
// It mirrors the .narinfo key/value format served at
// <cache>/<storeHash>.narinfo.
type NarInfo struct {
	// StorePath is the full store path the artifact unpacks to.
	StorePath string `json:"store_path"`

	// URL is the artifact location, relative to the cache root.
	URL string `json:"url"`

	// Compression is the archive compression ("xz", "zstd", "none").
	Compression string `json:"compression"`

	// FileHash and FileSize describe the compressed artifact.
	FileHash string `json:"file_hash"`
	FileSize int64  `json:"file_size"`

	// NarHash and NarSize describe the uncompressed archive.
	NarHash string `json:"nar_hash"`
	NarSize int64  `json:"nar_size"`

	// References are store paths the artifact depends on at runtime.
	References []string `json:"references,omitempty"`

	// Deriver is the derivation that produced the artifact, if known.
	Deriver string `json:"deriver,omitempty"`

	// Sig is the cache's signature over the narinfo fields.
	Sig string `json:"sig,omitempty"`
}

// ParseNarInfo reads the key/value narinfo format.
//
// Unknown keys are ignored so newer caches stay readable. StorePath, URL,
// and NarHash are required.
func ParseNarInfo(r io.Reader) (*NarInfo, error) {
	info := &NarInfo{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("substituter: malformed narinfo line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "StorePath":
			info.StorePath = value
		case "URL":
			info.URL = value
		case "Compression":
			info.Compression = value
		case "FileHash":
			info.FileHash = value
		case "FileSize":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("substituter: invalid FileSize %q: %w", value, err)
			}
			info.FileSize = n
		case "NarHash":
			info.NarHash = value
		case "NarSize":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("substituter: invalid NarSize %q: %w", value, err)
			}
			info.NarSize = n
		case "References":
			if value != "" {
				info.References = strings.Fields(value)
			}
		case "Deriver":
			info.Deriver = value
		case "Sig":
			info.Sig = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("substituter: read narinfo: %w", err)
	}

	if info.StorePath == "" {
		return nil, fmt.Errorf("substituter: narinfo missing StorePath")
	}
	if info.URL == "" {
		return nil, fmt.Errorf("substituter: narinfo missing URL")
	}
	if info.NarHash == "" {
		return nil, fmt.Errorf("substituter: narinfo missing NarHash")
	}
	return info, nil
}

// Format renders the narinfo back to its wire format.
func (n *NarInfo) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "StorePath: %s\n", n.StorePath)
	fmt.Fprintf(&b, "URL: %s\n", n.URL)
	if n.Compression != "" {
		fmt.Fprintf(&b, "Compression: %s\n", n.Compression)
	}
	if n.FileHash != "" {
		fmt.Fprintf(&b, "FileHash: %s\n", n.FileHash)
	}
	if n.FileSize > 0 {
		fmt.Fprintf(&b, "FileSize: %d\n", n.FileSize)
	}
	fmt.Fprintf(&b, "NarHash: %s\n", n.NarHash)
	if n.NarSize > 0 {
		fmt.Fprintf(&b, "NarSize: %d\n", n.NarSize)
	}
	if len(n.References) > 0 {
		fmt.Fprintf(&b, "References: %s\n", strings.Join(n.References, " "))
	}
	if n.Deriver != "" {
		fmt.Fprintf(&b, "Deriver: %s\n", n.Deriver)
	}
	if n.Sig != "" {
		fmt.Fprintf(&b, "Sig: %s\n", n.Sig)
	}
	return b.String()
}
