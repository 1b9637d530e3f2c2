package core

import "regexp"

// Window offsets in calendar days.
const (
	windowStartOffset = 2
	windowEndOffset   = 1
)

// WindowFor returns the surveillance window of an episode:
// [admission day + 2, discharge day + 1]. A nil episode or an absent
// admission gives a window with no start.
func WindowFor(ep *Episode) Window {
	if ep == nil || !ep.Admit.Valid {
		return Window{}
	}
	return Window{
		Start: ep.Admit.Day().AddDays(windowStartOffset),
		End:   ep.Discharge.Day().AddDays(windowEndOffset),
	}
}

// Classify compares a culture day with a window. Time of day plays no part.
//
//   - no window start (absent admission)  -> Unresolved
//   - absent culture day                  -> Unresolved
//   - day before start                    -> BeforeWindow
//   - end present and day after end       -> AfterWindow
//   - otherwise                           -> Matched
func Classify(culture Day, w Window) Outcome {
	if !w.Start.Valid || !culture.Valid {
		return Unresolved
	}
	if culture.Date.Before(w.Start.Date) {
		return BeforeWindow
	}
	if w.End.Valid && culture.Date.After(w.End.Date) {
		return AfterWindow
	}
	return Matched
}

// classifyCandidate builds the record for one event/episode pair.
func classifyCandidate(c Candidate) Record {
	w := WindowFor(c.Episode)
	return Record{
		Event:   c.Event,
		Episode: c.Episode,
		Window:  w,
		Outcome: Classify(c.Event.CollectedAt.Day(), w),
	}
}

// better reports whether a should be kept over b for the same event.
// Outcome priority decides first, so any Matched candidate wins; among
// equal outcomes the earlier admission wins, then the earlier row.
func better(a, b Record) bool {
	if a.Outcome != b.Outcome {
		return a.Outcome < b.Outcome
	}
	if c := a.Admit().Compare(b.Admit()); c != 0 {
		return c < 0
	}
	return episodeRow(a) < episodeRow(b)
}

func episodeRow(r Record) int {
	if r.Episode == nil {
		return 0
	}
	return r.Episode.Row
}

// SelectBest classifies candidates and keeps one record per event, in
// event order. eventCount is the number of events that were joined.
// When ward is non-nil, unresolved events without any admission whose ward
// matches it become NeedsWardCheck.
func SelectBest(cands []Candidate, eventCount int, ward *regexp.Regexp) []Record {
	best := make([]Record, eventCount)
	seen := make([]bool, eventCount)

	for _, c := range cands {
		rec := classifyCandidate(c)
		if !seen[c.EventIndex] || better(rec, best[c.EventIndex]) {
			best[c.EventIndex] = rec
			seen[c.EventIndex] = true
		}
	}

	out := make([]Record, 0, eventCount)
	for i, rec := range best {
		if !seen[i] {
			continue
		}
		if ward != nil && needsWardCheck(rec, ward) {
			rec.Outcome = NeedsWardCheck
		}
		out = append(out, rec)
	}
	return out
}

func needsWardCheck(r Record, ward *regexp.Regexp) bool {
	return r.Outcome == Unresolved &&
		!r.AdmitDay().Valid &&
		r.Event.Ward != "" &&
		ward.MatchString(r.Event.Ward)
}
