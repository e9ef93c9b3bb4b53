package harness

import (
	"fmt"
	"strings"

	"github.com/usestring/httpdelta/internal/profile"
)

// TargetSpec is one parsed entry of the targets list:
// name=profile@host:port.
type TargetSpec struct {
	Name    string
	Profile string
	Addr    string
}

// ParseTargetSpecs parses the comma-separated targets list from
// configuration.
func ParseTargetSpecs(s string) ([]TargetSpec, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty targets list")
	}

	var specs []TargetSpec
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("target %q: want name=profile@host:port", entry)
		}
		prof, addr, ok := strings.Cut(rest, "@")
		if !ok {
			return nil, fmt.Errorf("target %q: want name=profile@host:port", entry)
		}
		if name == "" || prof == "" || addr == "" {
			return nil, fmt.Errorf("target %q: empty field", entry)
		}
		specs = append(specs, TargetSpec{Name: name, Profile: prof, Addr: addr})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("empty targets list")
	}
	return specs, nil
}

// ResolveProfiles maps each spec to its profile: entries loaded from a
// profile document win over builtins of the same name.
func ResolveProfiles(specs []TargetSpec, loaded []*profile.Profile) ([]*profile.Profile, error) {
	byName := make(map[string]*profile.Profile, len(loaded))
	for _, p := range loaded {
		byName[p.Name] = p
	}

	profiles := make([]*profile.Profile, len(specs))
	for i, spec := range specs {
		if p, ok := byName[spec.Profile]; ok {
			profiles[i] = p
			continue
		}
		if p := profile.Builtin(spec.Profile); p != nil {
			profiles[i] = p
			continue
		}
		return nil, fmt.Errorf("target %s: unknown profile %q (builtins: %s)",
			spec.Name, spec.Profile, strings.Join(profile.BuiltinNames(), ", "))
	}
	return profiles, nil
}
