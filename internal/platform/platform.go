// Package platform detects the host platform and evaluates platform
// predicates used for conditional package inclusion.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Known OS families accepted in predicates.
const (
	Darwin  = "darwin"
	Linux   = "linux"
	Windows = "windows"

	// Any matches every host.
	Any = "any"
)

var knownFamilies = map[string]bool{
	Darwin:  true,
	Linux:   true,
	Windows: true,
	Any:     true,
}

// InvalidPredicateError is returned when a predicate references an unknown
// OS family or is malformed.
type InvalidPredicateError struct {
	Predicate string
}

func (e InvalidPredicateError) Error() string {
	return fmt.Sprintf("platform: invalid predicate %q (valid: darwin, linux, windows, any, or os/arch)", e.Predicate)
}

// Platform identifies a host operating system family and architecture.
type Platform struct {
	OS   string
	Arch string
}

// Detect returns the platform devrig is running on.
func Detect() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Parse converts an "os" or "os/arch" string into a Platform.
// The arch part defaults to the host architecture when omitted.
func Parse(s string) (Platform, error) {
	osPart, arch, found := strings.Cut(strings.TrimSpace(s), "/")
	if osPart == "" || (found && arch == "") {
		return Platform{}, InvalidPredicateError{Predicate: s}
	}
	// "any" is a predicate, not a concrete platform.
	if !knownFamilies[osPart] || osPart == Any {
		return Platform{}, InvalidPredicateError{Predicate: s}
	}
	if !found {
		arch = runtime.GOARCH
	}
	return Platform{OS: osPart, Arch: arch}, nil
}

// String returns the os/arch form of the platform.
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Matches evaluates a predicate against the platform. A predicate is an OS
// family ("darwin"), an os/arch pair ("linux/arm64"), or "any".
func (p Platform) Matches(pred string) bool {
	pred = strings.TrimSpace(pred)
	if pred == Any {
		return true
	}
	osPart, arch, found := strings.Cut(pred, "/")
	if osPart != p.OS {
		return false
	}
	return !found || arch == p.Arch
}

// ValidatePredicate reports whether a predicate is well-formed without
// evaluating it. Used by manifest validation so typos fail at check time
// rather than silently never matching.
func ValidatePredicate(pred string) error {
	pred = strings.TrimSpace(pred)
	osPart, arch, found := strings.Cut(pred, "/")
	if !knownFamilies[osPart] {
		return InvalidPredicateError{Predicate: pred}
	}
	if found && (arch == "" || osPart == Any) {
		return InvalidPredicateError{Predicate: pred}
	}
	return nil
}
