package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Source names for locating auxiliary columns.
const (
	SourceEpisodes = "episodes"
	SourceCultures = "cultures"
)

// DefaultWardPattern matches neonatal ICU ward names.
const DefaultWardPattern = "NICU|NR|신생아"

// EpisodeRoles names the columns of the ICU episode table.
type EpisodeRoles struct {
	ID        string
	Admit     string
	Discharge string
}

// CultureRoles names the columns of the culture table. Ward and Organism
// are optional; an empty name means the column is not tracked.
type CultureRoles struct {
	ID          string
	CollectedAt string
	Ward        string
	Organism    string
}

// AttributeRoles locates one attribute in a source table. Source is
// "episodes", "cultures", or the name of an auxiliary table.
type AttributeRoles struct {
	Source string
	ID     string
	Value  string
}

// SexRoles locates the sex attribute. When Combined is set, Value holds a
// composite field such as "F/34" and the sex is split out of it.
type SexRoles struct {
	AttributeRoles
	Combined  bool
	Delimiter string // empty means detect
	Position  Position
}

// RegistryRoles names the ID column of a registry list.
type RegistryRoles struct {
	ID string
}

// MatchConfig selects columns and options for one pipeline run.
type MatchConfig struct {
	Episodes EpisodeRoles
	Cultures CultureRoles

	Birth    *AttributeRoles
	Name     *AttributeRoles
	Sex      *SexRoles
	Registry *RegistryRoles

	Strategy    Strategy
	WardPattern string // empty means DefaultWardPattern
}

// Inputs are the tables of one run.
type Inputs struct {
	Episodes *Table
	Cultures *Table
	Aux      map[string]*Table
	Registry *Table
}

// Source returns the table with the given source name.
func (in Inputs) Source(name string) (*Table, bool) {
	switch name {
	case "", SourceEpisodes:
		return in.Episodes, in.Episodes != nil
	case SourceCultures:
		return in.Cultures, in.Cultures != nil
	}
	t, ok := in.Aux[name]
	return t, ok && t != nil
}

// ErrMissingTable is returned when a required table is not supplied.
var ErrMissingTable = errors.New("no file provided")

// Validate checks that every configured column exists in its table.
// All problems are reported together.
func (c MatchConfig) Validate(in Inputs) error {
	var errs []error

	if in.Episodes == nil {
		errs = append(errs, fmt.Errorf("episodes: %w", ErrMissingTable))
	} else {
		errs = append(errs,
			requireColumn(in.Episodes, "patient id", c.Episodes.ID),
			requireColumn(in.Episodes, "admission time", c.Episodes.Admit),
			requireColumn(in.Episodes, "discharge time", c.Episodes.Discharge),
		)
	}

	if in.Cultures == nil {
		errs = append(errs, fmt.Errorf("cultures: %w", ErrMissingTable))
	} else {
		errs = append(errs,
			requireColumn(in.Cultures, "patient id", c.Cultures.ID),
			requireColumn(in.Cultures, "culture time", c.Cultures.CollectedAt),
			optionalColumn(in.Cultures, "ward", c.Cultures.Ward),
			optionalColumn(in.Cultures, "organism", c.Cultures.Organism),
		)
	}

	if c.Birth != nil {
		errs = append(errs, c.Birth.validate(in, "birth date"))
	}
	if c.Name != nil {
		errs = append(errs, c.Name.validate(in, "name"))
	}
	if c.Sex != nil {
		role := "sex"
		if c.Sex.Combined {
			role = "combined sex field"
		}
		errs = append(errs, c.Sex.AttributeRoles.validate(in, role))
	}
	if c.Registry != nil {
		if in.Registry == nil {
			errs = append(errs, fmt.Errorf("registry: %w", ErrMissingTable))
		} else {
			errs = append(errs, requireColumn(in.Registry, "patient id", c.Registry.ID))
		}
	}

	if _, err := c.wardRegexp(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (a AttributeRoles) validate(in Inputs, role string) error {
	t, ok := in.Source(a.Source)
	if !ok {
		return fmt.Errorf("%s source %q: %w", role, a.Source, ErrMissingTable)
	}
	return errors.Join(
		requireColumn(t, role+" patient id", a.ID),
		requireColumn(t, role, a.Value),
	)
}

func (c MatchConfig) wardRegexp() (*regexp.Regexp, error) {
	pattern := strings.TrimSpace(c.WardPattern)
	if pattern == "" {
		pattern = DefaultWardPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid ward pattern %q: %w", pattern, err)
	}
	return re, nil
}

func requireColumn(t *Table, role, column string) error {
	if strings.TrimSpace(column) == "" || !t.Has(column) {
		return &ColumnError{Table: t.Name, Role: role, Column: column}
	}
	return nil
}

func optionalColumn(t *Table, role, column string) error {
	if strings.TrimSpace(column) == "" {
		return nil
	}
	return requireColumn(t, role, column)
}
