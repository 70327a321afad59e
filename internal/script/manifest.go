// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/stonehook/internal/script/capability"
)

// APIVersion is the version of the server.* API offered to scripts. A
// manifest's api constraint is checked against it.
const APIVersion = "1.2.0"

// ManifestFile is the manifest name looked for in each script directory.
const ManifestFile = "script.yaml"

// Manifest represents a script.yaml file.
type Manifest struct {
	Name         string            `yaml:"name" json:"name" jsonschema:"pattern=^[a-z]([a-z0-9-]*[a-z0-9])?$,maxLength=64"`
	Version      string            `yaml:"version" json:"version" jsonschema:"description=Semantic version of the script"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	API          string            `yaml:"api,omitempty" json:"api,omitempty" jsonschema:"description=Semver constraint on the server API version"`
	Entry        string            `yaml:"entry" json:"entry" jsonschema:"description=Lua file run at load time"`
	Capabilities []string          `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Requires     map[string]string `yaml:"requires,omitempty" json:"requires,omitempty" jsonschema:"description=Scripts that must load first with their version constraints"`
}

// maxNameLength is the maximum allowed length for script names.
const maxNameLength = 64

// namePattern validates script names: a lowercase letter, then lowercase
// letters, digits, or hyphens, not ending with a hyphen.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

var globChars = regexp.MustCompile(`[*?\[{]`)

// ParseManifest parses and validates a script.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, oops.In("script").Code(CodeInvalidManifest).Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.In("script").Code(CodeInvalidManifest).Wrapf(err, "invalid YAML")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	fail := func(format string, args ...any) error {
		return oops.In("script").Code(CodeInvalidManifest).With("script", m.Name).Errorf(format, args...)
	}

	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fail("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fail("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}
	if m.Version == "" {
		return fail("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fail("version %q is not a semantic version: %v", m.Version, err)
	}
	if m.API != "" {
		if _, err := semver.NewConstraint(m.API); err != nil {
			return fail("api constraint %q is invalid: %v", m.API, err)
		}
	}
	if m.Entry == "" {
		return fail("entry is required")
	}
	if !filepath.IsLocal(m.Entry) || filepath.Ext(m.Entry) != ".lua" {
		return fail("entry %q must be a .lua file inside the script directory", m.Entry)
	}
	for _, c := range m.Capabilities {
		if c == "" {
			return fail("capabilities must not contain empty entries")
		}
	}
	for _, dep := range m.requiredNames() {
		if dep == m.Name {
			return fail("script cannot require itself")
		}
		if !namePattern.MatchString(dep) {
			return fail("required script name %q is invalid", dep)
		}
		if c := m.Requires[dep]; c != "" {
			if _, err := semver.NewConstraint(c); err != nil {
				return fail("constraint %q on %s is invalid: %v", c, dep, err)
			}
		}
	}
	return nil
}

// CheckAPI reports whether the host API version satisfies the manifest's
// api constraint.
func (m *Manifest) CheckAPI() error {
	if m.API == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.API)
	if err != nil {
		return oops.In("script").Code(CodeInvalidManifest).With("script", m.Name).Wrap(err)
	}
	if ok, errs := c.Validate(semver.MustParse(APIVersion)); !ok {
		return oops.In("script").
			Code(CodeAPIMismatch).
			With("script", m.Name).
			With("api", m.API).
			Hint(fmt.Sprintf("this server provides API %s", APIVersion)).
			Errorf("script requires API %s: %v", m.API, errs)
	}
	return nil
}

// Satisfies reports whether this manifest's version meets constraint. An
// empty constraint accepts any version.
func (m *Manifest) Satisfies(constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	v, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

// Grants returns the capabilities to hand to the enforcer. A script that
// declares none gets none.
func (m *Manifest) Grants() []string {
	return append([]string(nil), m.Capabilities...)
}

// UnknownCapabilities lists declared capabilities that are not globs and
// name nothing the server checks.
func (m *Manifest) UnknownCapabilities() []string {
	known := make(map[string]bool)
	for _, c := range capability.All() {
		known[c] = true
	}
	var out []string
	for _, c := range m.Capabilities {
		if !known[c] && !globChars.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manifest) requiredNames() []string {
	names := make([]string, 0, len(m.Requires))
	for n := range m.Requires {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
