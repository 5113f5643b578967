package manifest

import (
	"regexp"

	"github.com/devrig/devrig/internal/platform"
)

// Known language integrations. Unknown names are flagged so a typo like
// "rusl" fails at check time instead of silently doing nothing.
var validLanguages = map[string]bool{
	"nix":  true,
	"rust": true,
	"go":   true,
	"zig":  true,
}

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info.
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to console.
	"json":    true,
	"console": true,
	"pretty":  true,
}

// envNameRe matches POSIX-portable environment variable names.
var envNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the manifest for errors: empty or duplicate package
// identifiers, malformed platform predicates, unknown languages, invalid
// env var names, and invalid tool-side sections. All problems are collected
// into a single ValidationError.
func (m *Manifest) Validate() error {
	errs := &ValidationError{}

	validatePackages(m, errs)
	validateLanguages(m, errs)
	validateEnv(m, errs)
	validateLogging(m, errs)
	validateTool(m, errs)

	return errs.ToError()
}

func validatePackages(m *Manifest, errs *ValidationError) {
	seen := make(map[string]bool, len(m.Packages.Base))

	checkList := func(list []string, where string) {
		for i, pkg := range list {
			if pkg == "" {
				errs.Addf("%s[%d]: package identifier is empty", where, i)
				continue
			}
			if seen[pkg] {
				errs.Addf("%s[%d]: duplicate package %q", where, i, pkg)
			}
			seen[pkg] = true
		}
	}

	checkList(m.Packages.Base, "packages.base")

	for i := range m.Packages.Platform {
		group := &m.Packages.Platform[i]
		if err := platform.ValidatePredicate(group.Match); err != nil {
			errs.Addf("packages.platform[%d]: %v", i, err)
		}
		if len(group.Add) == 0 {
			errs.Addf("packages.platform[%d]: add list is empty", i)
		}
		checkList(group.Add, "packages.platform."+group.Match)
	}
}

func validateLanguages(m *Manifest, errs *ValidationError) {
	for name, lang := range m.Languages {
		if !validLanguages[name] {
			errs.Addf("languages.%s: unknown language (valid: nix, rust, go, zig)", name)
		}
		if lang.Linker.Enable && lang.Linker.Package == "" {
			errs.Addf("languages.%s.linker: package is required when enabled", name)
		}
	}
}

func validateEnv(m *Manifest, errs *ValidationError) {
	for name, value := range m.Env {
		if !envNameRe.MatchString(name) {
			errs.Addf("env: invalid variable name %q", name)
		}
		if value == "" {
			errs.Addf("env.%s: value is empty", name)
		}
	}
}

func validateLogging(m *Manifest, errs *ValidationError) {
	if !validLogLevels[m.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", m.Logging.Level)
	}
	if !validLogFormats[m.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, pretty)", m.Logging.Format)
	}
}

func validateTool(m *Manifest, errs *ValidationError) {
	if m.Cache.Mode != "" {
		if err := m.Cache.Validate(); err != nil {
			errs.Add(err.Error())
		}
	}

	seenEndpoints := make(map[string]bool, len(m.Substituters))
	for i := range m.Substituters {
		ep := &m.Substituters[i]
		if err := ep.Validate(); err != nil {
			errs.Addf("substituters[%d]: %v", i, err)
			continue
		}
		if seenEndpoints[ep.Name] {
			errs.Addf("substituters[%d]: duplicate endpoint name %q", i, ep.Name)
		}
		seenEndpoints[ep.Name] = true
	}

	if m.Provision.Jobs < 0 {
		errs.Add("provision.jobs must be >= 0")
	}
	if m.Provision.TimeoutMS < 0 {
		errs.Add("provision.timeout_ms must be >= 0")
	}
}
