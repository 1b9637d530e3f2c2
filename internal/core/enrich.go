package core

import (
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Warning codes for auxiliary data.
const (
	WarnBirthRejected  = "AUX001"
	WarnBirthPartial   = "AUX002"
	WarnSexUnsplit     = "AUX003"
	WarnRegistryEmpty  = "AUX004"
	birthMinLength     = 8
	plausibilityCutoff = 0.5
)

// choseong lists the 19 leading consonants of Hangul syllables in
// Unicode order.
var choseong = []rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// Initials replaces each Hangul syllable with its leading consonant.
// Other characters are kept as they are: "김민지" -> "ㄱㅁㅈ".
func Initials(name string) string {
	out := make([]rune, 0, utf8.RuneCountInString(name))
	for _, r := range name {
		if r >= '가' && r <= '힣' {
			out = append(out, choseong[(r-'가')/(21*28)])
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Enricher merges auxiliary attributes onto classified records.
type Enricher struct {
	cfg    MatchConfig
	logger *slog.Logger
}

// NewEnricher creates an Enricher for the attribute roles in cfg.
func NewEnricher(cfg MatchConfig, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{cfg: cfg, logger: logger}
}

// Enrichment is the output of Apply. The Has flags report which
// attributes were actually merged.
type Enrichment struct {
	Records     []Record
	Warnings    []Warning
	HasBirth    bool
	HasName     bool
	HasSex      bool
	HasRegistry bool
}

// Apply returns enriched copies of records. Problems with auxiliary data
// are returned as warnings and never stop enrichment.
func (e *Enricher) Apply(records []Record, in Inputs) Enrichment {
	out := make([]Record, len(records))
	copy(out, records)

	res := Enrichment{Records: out}

	if e.cfg.Birth != nil {
		births, warns := e.birthDates(in)
		res.Warnings = append(res.Warnings, warns...)
		res.HasBirth = births != nil
		for i := range out {
			if d, ok := births[out[i].Event.ID]; ok {
				out[i].BirthDate = d
			}
		}
	}

	if e.cfg.Name != nil {
		if names, err := attributeByKey(in, *e.cfg.Name); err == nil {
			res.HasName = true
			for i := range out {
				if n := names[out[i].Event.ID]; n != "" {
					out[i].Initial = Initials(n)
				}
			}
		}
	}

	if e.cfg.Sex != nil {
		sexes, warns := e.sexes(in)
		res.Warnings = append(res.Warnings, warns...)
		res.HasSex = sexes != nil
		for i := range out {
			out[i].Sex = sexes[out[i].Event.ID]
		}
	}

	if e.cfg.Registry != nil && in.Registry != nil {
		registered, warns := registrySet(in.Registry, e.cfg.Registry.ID)
		res.Warnings = append(res.Warnings, warns...)
		res.HasRegistry = registered != nil
		for i := range out {
			out[i].Registered = registered[out[i].Event.ID]
		}
	}

	for _, w := range res.Warnings {
		e.logger.Warn("auxiliary data warning", "code", w.Code, "source", w.Source, "message", w.Message)
	}
	return res
}

// attributeByKey reads an attribute column keyed by patient ID. When an ID
// repeats, the last row wins so appended correction rows take effect.
func attributeByKey(in Inputs, roles AttributeRoles) (map[PatientID]string, error) {
	t, ok := in.Source(roles.Source)
	if !ok {
		return nil, fmt.Errorf("attribute source %q: %w", roles.Source, ErrMissingTable)
	}
	ids, err := t.Column(roles.ID)
	if err != nil {
		return nil, err
	}
	values, err := t.Column(roles.Value)
	if err != nil {
		return nil, err
	}
	out := make(map[PatientID]string, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		out[PatientID(id)] = values[i]
	}
	return out, nil
}

func (e *Enricher) birthDates(in Inputs) (map[PatientID]Day, []Warning) {
	raw, err := attributeByKey(in, *e.cfg.Birth)
	if err != nil {
		return nil, []Warning{{Code: WarnBirthRejected, Source: "birth date", Message: err.Error()}}
	}
	return ValidateBirthDates(raw)
}

// ValidateBirthDates parses a deduplicated birth-date column.
//
// If fewer than half of the non-empty values are at least eight characters
// long, the column is rejected (AUX001) and nil is returned. If fewer than
// half parse as dates, AUX002 is raised and the parsed subset is still
// returned.
func ValidateBirthDates(raw map[PatientID]string) (map[PatientID]Day, []Warning) {
	var present, long, parsed int
	days := make(map[PatientID]Day, len(raw))

	for id, v := range raw {
		if v == "" {
			continue
		}
		present++
		if utf8.RuneCountInString(v) >= birthMinLength {
			long++
		}
		if ts := ParseTimestamp(v); ts.Valid {
			parsed++
			days[id] = ts.Day()
		}
	}

	if present == 0 || ratio(long, present) < plausibilityCutoff {
		return nil, []Warning{{
			Code:    WarnBirthRejected,
			Source:  "birth date",
			Message: fmt.Sprintf("most values do not look like dates (%d of %d have 8+ characters); check the column selection", long, present),
		}}
	}

	if ratio(parsed, present) < plausibilityCutoff {
		return days, []Warning{{
			Code:    WarnBirthPartial,
			Source:  "birth date",
			Message: fmt.Sprintf("only %d of %d values could be read as dates; some birth dates may be missing", parsed, present),
		}}
	}
	return days, nil
}

func (e *Enricher) sexes(in Inputs) (map[PatientID]string, []Warning) {
	roles := e.cfg.Sex
	raw, err := attributeByKey(in, roles.AttributeRoles)
	if err != nil {
		return nil, []Warning{{Code: WarnSexUnsplit, Source: "sex", Message: err.Error()}}
	}
	if !roles.Combined {
		return raw, nil
	}

	delim := roles.Delimiter
	if delim == "" {
		// Sample in row order, before deduplication.
		t, _ := in.Source(roles.Source)
		values, _ := t.Column(roles.Value)
		delim = DetectDelimiter(values)
	}

	out := make(map[PatientID]string, len(raw))
	var failed, present int
	for id, v := range raw {
		if v == "" {
			continue
		}
		present++
		if seg, ok := SplitField(v, delim, roles.Position); ok {
			out[id] = seg
		} else {
			failed++
		}
	}

	var warnings []Warning
	if failed > 0 {
		warnings = append(warnings, Warning{
			Code:    WarnSexUnsplit,
			Source:  "sex",
			Message: fmt.Sprintf("%d of %d combined values have an empty %s segment for %q", failed, present, roles.Position, delim),
		})
	}
	return out, warnings
}

// registrySet collects the IDs of a registry list.
func registrySet(t *Table, column string) (map[PatientID]bool, []Warning) {
	ids, err := t.Column(column)
	if err != nil {
		return nil, []Warning{{Code: WarnRegistryEmpty, Source: "registry", Message: err.Error()}}
	}
	set := make(map[PatientID]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[PatientID(id)] = true
		}
	}
	if len(set) == 0 {
		return set, []Warning{{Code: WarnRegistryEmpty, Source: "registry", Message: "registry list has no patient IDs; every row is flagged N"}}
	}
	return set, nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
