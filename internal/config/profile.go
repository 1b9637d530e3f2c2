package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/icumatch/internal/core"
)

// Profile is a saved column selection for one hospital's exports. The web
// shell accepts the same structure as JSON.
//
//	name: icu-2025
//	strategy: range
//	variant: internal
//	episodes: {id: 환자번호, admit: 입실일시, discharge: 퇴실일시}
//	cultures: {id: 환자번호, collected_at: 시행일시, ward: 시행부서, organism: 미생물결과}
//	attributes:
//	  birth: {source: info, id: 환자번호, value: 생년월일}
//	  sex: {source: episodes, id: 환자번호, value: S/A, combined: true, position: first}
//	registry: {id: 등록번호}
type Profile struct {
	Name        string            `yaml:"name" json:"name,omitempty"`
	Strategy    string            `yaml:"strategy" json:"strategy,omitempty"`
	Variant     string            `yaml:"variant" json:"variant,omitempty"`
	WardPattern string            `yaml:"ward_pattern" json:"ward_pattern,omitempty"`
	Episodes    EpisodeProfile    `yaml:"episodes" json:"episodes"`
	Cultures    CultureProfile    `yaml:"cultures" json:"cultures"`
	Attributes  AttributesProfile `yaml:"attributes" json:"attributes"`
	Registry    *RegistryProfile  `yaml:"registry" json:"registry,omitempty"`
}

type EpisodeProfile struct {
	ID        string `yaml:"id" json:"id" validate:"required"`
	Admit     string `yaml:"admit" json:"admit" validate:"required"`
	Discharge string `yaml:"discharge" json:"discharge" validate:"required"`
}

type CultureProfile struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	CollectedAt string `yaml:"collected_at" json:"collected_at" validate:"required"`
	Ward        string `yaml:"ward" json:"ward,omitempty"`
	Organism    string `yaml:"organism" json:"organism,omitempty"`
}

type AttributeProfile struct {
	Source    string `yaml:"source" json:"source,omitempty"`
	ID        string `yaml:"id" json:"id" validate:"required"`
	Value     string `yaml:"value" json:"value" validate:"required"`
	Combined  bool   `yaml:"combined" json:"combined,omitempty"`
	Delimiter string `yaml:"delimiter" json:"delimiter,omitempty"`
	Position  string `yaml:"position" json:"position,omitempty" validate:"omitempty,oneof=first last front back 앞 뒤"`
}

type AttributesProfile struct {
	Birth *AttributeProfile `yaml:"birth" json:"birth,omitempty"`
	Name  *AttributeProfile `yaml:"name" json:"name,omitempty"`
	Sex   *AttributeProfile `yaml:"sex" json:"sex,omitempty"`
}

type RegistryProfile struct {
	ID string `yaml:"id" json:"id" validate:"required"`
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := ParseProfile(content)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// ParseProfile decodes a YAML profile. Unknown keys are rejected so that a
// misspelled column role does not silently drop out.
func ParseProfile(content []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the required roles are named.
func (p *Profile) Validate() error {
	var errs []string
	required := []struct{ key, value string }{
		{"episodes.id", p.Episodes.ID},
		{"episodes.admit", p.Episodes.Admit},
		{"episodes.discharge", p.Episodes.Discharge},
		{"cultures.id", p.Cultures.ID},
		{"cultures.collected_at", p.Cultures.CollectedAt},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.key+" is required")
		}
	}
	if p.Registry != nil && strings.TrimSpace(p.Registry.ID) == "" {
		errs = append(errs, "registry.id is required when registry is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid profile: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MatchConfig converts the profile into pipeline settings.
func (p *Profile) MatchConfig() (core.MatchConfig, error) {
	strategy, err := core.ParseStrategy(p.Strategy)
	if err != nil {
		return core.MatchConfig{}, fmt.Errorf("invalid profile: %w", err)
	}

	cfg := core.MatchConfig{
		Episodes: core.EpisodeRoles{
			ID:        p.Episodes.ID,
			Admit:     p.Episodes.Admit,
			Discharge: p.Episodes.Discharge,
		},
		Cultures: core.CultureRoles{
			ID:          p.Cultures.ID,
			CollectedAt: p.Cultures.CollectedAt,
			Ward:        p.Cultures.Ward,
			Organism:    p.Cultures.Organism,
		},
		Strategy:    strategy,
		WardPattern: p.WardPattern,
	}

	if a := p.Attributes.Birth; a != nil {
		cfg.Birth = a.roles()
	}
	if a := p.Attributes.Name; a != nil {
		cfg.Name = a.roles()
	}
	if a := p.Attributes.Sex; a != nil {
		pos, err := core.ParsePosition(a.Position)
		if err != nil {
			return core.MatchConfig{}, fmt.Errorf("invalid profile: sex: %w", err)
		}
		cfg.Sex = &core.SexRoles{
			AttributeRoles: *a.roles(),
			Combined:       a.Combined,
			Delimiter:      a.Delimiter,
			Position:       pos,
		}
	}
	if p.Registry != nil {
		cfg.Registry = &core.RegistryRoles{ID: p.Registry.ID}
	}
	return cfg, nil
}

// ExportVariant returns the profile's export layout.
func (p *Profile) ExportVariant() (core.Variant, error) {
	v, err := core.ParseVariant(p.Variant)
	if err != nil {
		return v, fmt.Errorf("invalid profile: %w", err)
	}
	return v, nil
}

// AuxSources lists the auxiliary table names the attributes read from,
// in first-seen order.
func (p *Profile) AuxSources() []string {
	var names []string
	seen := map[string]bool{}
	for _, a := range []*AttributeProfile{p.Attributes.Birth, p.Attributes.Name, p.Attributes.Sex} {
		if a == nil {
			continue
		}
		switch a.Source {
		case "", core.SourceEpisodes, core.SourceCultures:
			continue
		}
		if !seen[a.Source] {
			seen[a.Source] = true
			names = append(names, a.Source)
		}
	}
	return names
}

func (a *AttributeProfile) roles() *core.AttributeRoles {
	return &core.AttributeRoles{Source: a.Source, ID: a.ID, Value: a.Value}
}

// ErrNoProfile is returned by Matching.Profile when no profile path is set.
var ErrNoProfile = errors.New("no matching profile configured")

// Profile loads the configured profile. The configured ward pattern is
// used when the profile does not set its own.
func (c *MatchingConfig) Profile() (*Profile, error) {
	if c.ProfilePath == "" {
		return nil, ErrNoProfile
	}
	p, err := LoadProfile(c.ProfilePath)
	if err != nil {
		return nil, err
	}
	if p.WardPattern == "" {
		p.WardPattern = c.WardPattern
	}
	return p, nil
}
