// Package patterns loads named signature sets and resolves them against a session
package patterns

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"procmem/process"
	"procmem/signature"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "patterns"))

//go:embed osu_stable.yaml
var osuStable []byte

// Pattern is a named signature. The resolved address is the match plus Offset.
type Pattern struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"pattern"`
	Offset    int32  `yaml:"offset,omitempty"`
	Optional  bool   `yaml:"optional,omitempty"`
}

// Set is a named list of patterns
type Set struct {
	Name     string    `yaml:"name"`
	Patterns []Pattern `yaml:"patterns"`
}

// Finder is satisfied by a reader session
type Finder interface {
	FindSignature(sig string) (process.Address, error)
}

// Parse decodes a YAML pattern set and validates every signature
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse pattern set")
	}

	seen := make(map[string]bool, len(set.Patterns))
	for _, p := range set.Patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("pattern %q has no name", p.Signature)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate pattern %q", p.Name)
		}
		seen[p.Name] = true

		if _, err := signature.Parse(p.Signature); err != nil {
			return nil, pkgerrors.Wrapf(err, "pattern %q", p.Name)
		}
	}

	return &set, nil
}

// Load reads a YAML pattern set from a file
func Load(filename string) (*Set, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read pattern set")
	}
	return Parse(data)
}

// OsuStable returns the built-in pattern set for osu! stable
func OsuStable() *Set {
	set, err := Parse(osuStable)
	if err != nil {
		panic(err)
	}
	return set
}

// Resolve scans for every pattern of the set. Missing optional patterns are logged and left out;
// missing required ones are all reported together.
func (s *Set) Resolve(f Finder) (map[string]process.Address, error) {
	result := make(map[string]process.Address, len(s.Patterns))
	var errs []error

	for _, p := range s.Patterns {
		addr, err := f.FindSignature(p.Signature)
		if err != nil {
			if p.Optional && errors.Is(err, process.ErrSignatureNotFound) {
				log.Warn("Optional pattern not found: ", p.Name)
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}

		result[p.Name] = addr.Add(p.Offset)
		log.Debugln("Resolved", p.Name, "at", result[p.Name])
	}

	return result, errors.Join(errs...)
}
