package core

import (
	"fmt"
	"strings"
)

// Strategy selects how culture events are joined to episodes.
type Strategy int

const (
	// StrategyRange attaches every episode of the patient as a candidate.
	StrategyRange Strategy = iota
	// StrategyNearest attaches only the latest admission at or before the
	// culture time.
	StrategyNearest
)

func (s Strategy) String() string {
	if s == StrategyNearest {
		return "nearest"
	}
	return "range"
}

// ParseStrategy accepts "range" and "nearest".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "range":
		return StrategyRange, nil
	case "nearest", "nearest-preceding", "nearest_preceding":
		return StrategyNearest, nil
	}
	return StrategyRange, fmt.Errorf("invalid strategy %q: want range or nearest", s)
}

// Candidate pairs a culture event with one possible episode.
// Episode is nil when the patient has no usable episode.
type Candidate struct {
	EventIndex int
	Event      CultureEvent
	Episode    *Episode
}

// episodeIndex groups episodes by patient, preserving input order.
type episodeIndex map[PatientID][]*Episode

func indexEpisodes(episodes []Episode) episodeIndex {
	idx := make(episodeIndex)
	for i := range episodes {
		ep := &episodes[i]
		idx[ep.ID] = append(idx[ep.ID], ep)
	}
	return idx
}

// RangeJoin pairs each event with every episode of the same patient.
// Events without episodes yield one candidate with a nil Episode, so every
// event appears at least once.
func RangeJoin(events []CultureEvent, episodes []Episode) []Candidate {
	idx := indexEpisodes(cloneEpisodes(episodes))

	out := make([]Candidate, 0, len(events))
	for i, ev := range events {
		eps := idx[ev.ID]
		if len(eps) == 0 {
			out = append(out, Candidate{EventIndex: i, Event: ev})
			continue
		}
		for _, ep := range eps {
			out = append(out, Candidate{EventIndex: i, Event: ev, Episode: ep})
		}
	}
	return out
}

// NearestPreceding pairs each event with the episode whose admission is
// the latest one not after the culture time. Equal admissions go to the
// later row. Events with no such admission get a nil Episode.
func NearestPreceding(events []CultureEvent, episodes []Episode) []Candidate {
	idx := indexEpisodes(cloneEpisodes(episodes))

	out := make([]Candidate, len(events))
	for i, ev := range events {
		out[i] = Candidate{EventIndex: i, Event: ev}
		if !ev.CollectedAt.Valid {
			continue
		}
		var best *Episode
		for _, ep := range idx[ev.ID] {
			if !ep.Admit.Valid || ep.Admit.Time.After(ev.CollectedAt.Time) {
				continue
			}
			if best == nil || !ep.Admit.Time.Before(best.Admit.Time) {
				best = ep
			}
		}
		out[i].Episode = best
	}
	return out
}

// Join dispatches to the join for the strategy.
func (s Strategy) Join(events []CultureEvent, episodes []Episode) []Candidate {
	if s == StrategyNearest {
		return NearestPreceding(events, episodes)
	}
	return RangeJoin(events, episodes)
}

func cloneEpisodes(episodes []Episode) []Episode {
	out := make([]Episode, len(episodes))
	copy(out, episodes)
	return out
}

// LoadEpisodes reads episodes from a table. Rows without a patient ID are
// skipped since they can never join.
func LoadEpisodes(t *Table, roles EpisodeRoles) ([]Episode, error) {
	ids, err := t.Column(roles.ID)
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}
	admits, err := t.Column(roles.Admit)
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}
	discharges, err := t.Column(roles.Discharge)
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}

	out := make([]Episode, 0, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		out = append(out, Episode{
			ID:        PatientID(id),
			Admit:     ParseTimestamp(admits[i]),
			Discharge: ParseTimestamp(discharges[i]),
			Row:       i + 1,
		})
	}
	return out, nil
}

// LoadEvents reads culture events from a table. Every row becomes an
// event, including rows with an empty ID or an unparseable time.
func LoadEvents(t *Table, roles CultureRoles) ([]CultureEvent, error) {
	ids, err := t.Column(roles.ID)
	if err != nil {
		return nil, fmt.Errorf("load cultures: %w", err)
	}
	times, err := t.Column(roles.CollectedAt)
	if err != nil {
		return nil, fmt.Errorf("load cultures: %w", err)
	}
	wards, err := optionalValues(t, roles.Ward)
	if err != nil {
		return nil, fmt.Errorf("load cultures: %w", err)
	}
	organisms, err := optionalValues(t, roles.Organism)
	if err != nil {
		return nil, fmt.Errorf("load cultures: %w", err)
	}

	out := make([]CultureEvent, len(ids))
	for i, id := range ids {
		out[i] = CultureEvent{
			ID:          PatientID(id),
			CollectedAt: ParseTimestamp(times[i]),
			RawTime:     times[i],
			Ward:        wards[i],
			Organism:    organisms[i],
			Row:         i + 1,
		}
	}
	return out, nil
}

func optionalValues(t *Table, column string) ([]string, error) {
	if strings.TrimSpace(column) == "" {
		return make([]string, t.Len()), nil
	}
	return t.Column(column)
}
