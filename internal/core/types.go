package core

import "time"

// DayLayout is the export format for calendar dates.
const DayLayout = "2006-01-02"

// PatientID is an opaque patient identifier. It is always compared as text
// so leading zeros survive.
type PatientID string

// Timestamp is a point in time that may be absent.
// Valid=false means the source value was empty or unparseable.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// TimestampOf wraps t as a valid Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// Day truncates the timestamp to its calendar date.
func (t Timestamp) Day() Day {
	if !t.Valid {
		return Day{}
	}
	y, m, d := t.Time.Date()
	return Day{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// Compare orders timestamps with absent values last.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case !t.Valid && !o.Valid:
		return 0
	case !t.Valid:
		return 1
	case !o.Valid:
		return -1
	}
	return t.Time.Compare(o.Time)
}

// Day is a calendar date that may be absent.
type Day struct {
	Date  time.Time
	Valid bool
}

// NewDay returns the valid Day for the given date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// AddDays shifts the day. Absent days stay absent.
func (d Day) AddDays(n int) Day {
	if !d.Valid {
		return d
	}
	return Day{Date: d.Date.AddDate(0, 0, n), Valid: true}
}

// Compare orders days with absent values last.
func (d Day) Compare(o Day) int {
	switch {
	case !d.Valid && !o.Valid:
		return 0
	case !d.Valid:
		return 1
	case !o.Valid:
		return -1
	}
	return d.Date.Compare(o.Date)
}

// String formats the day as YYYY-MM-DD, or "" when absent.
func (d Day) String() string {
	if !d.Valid {
		return ""
	}
	return d.Date.Format(DayLayout)
}

// Episode is one ICU stay. An absent Discharge means the stay is ongoing;
// an absent Admit is a data-quality defect and cannot anchor a window.
type Episode struct {
	ID        PatientID
	Admit     Timestamp
	Discharge Timestamp
	Row       int // 1-based data row in the source table
}

// CultureEvent is one positive blood culture.
type CultureEvent struct {
	ID          PatientID
	CollectedAt Timestamp
	RawTime     string // source text of CollectedAt, used when it is absent
	Ward        string
	Organism    string
	Row         int
}

// identity is the deduplication key of an event.
func (e CultureEvent) identity(trackOrganism bool) string {
	t := e.RawTime
	if e.CollectedAt.Valid {
		t = e.CollectedAt.Time.Format(time.RFC3339Nano)
	}
	key := string(e.ID) + "\x00" + t
	if trackOrganism {
		key += "\x00" + e.Organism
	}
	return key
}

// Window is the surveillance window of an episode: [admit day + 2,
// discharge day + 1]. An absent End means the window is open-ended.
type Window struct {
	Start Day
	End   Day
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day Day) bool {
	if !w.Start.Valid || !day.Valid {
		return false
	}
	if day.Date.Before(w.Start.Date) {
		return false
	}
	return !w.End.Valid || !day.Date.After(w.End.Date)
}

// Outcome is the classification of a culture event against a window.
// Declaration order is the export sort priority.
type Outcome int

const (
	Matched Outcome = iota
	NeedsWardCheck
	BeforeWindow
	AfterWindow
	Unresolved
)

var outcomeNames = [...]string{"matched", "needs_ward_check", "before_window", "after_window", "unresolved"}

// Remarks printed in the export for each outcome.
var outcomeLabels = [...]string{
	"",
	"입퇴실일 확인",
	"감시기간 이전",
	"감시기간 이후",
	"시행부서 확인",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Label returns the remark printed in the export. Matched has no remark.
func (o Outcome) Label() string {
	if o < 0 || int(o) >= len(outcomeLabels) {
		return ""
	}
	return outcomeLabels[o]
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Record is a culture event with its chosen episode, outcome and
// enrichment attributes.
type Record struct {
	Seq       int
	Event     CultureEvent
	Episode   *Episode // nil when no episode was found
	Window    Window
	Outcome   Outcome
	Initial   string
	Sex       string
	BirthDate Day
	// Registered is meaningful only when Result.RegistryChecked is set.
	Registered bool
}

// AdmitDay returns the admission day of the chosen episode.
func (r Record) AdmitDay() Day {
	if r.Episode == nil {
		return Day{}
	}
	return r.Episode.Admit.Day()
}

// Admit returns the admission time of the chosen episode.
func (r Record) Admit() Timestamp {
	if r.Episode == nil {
		return Timestamp{}
	}
	return r.Episode.Admit
}

// Discharge returns the discharge time of the chosen episode.
func (r Record) Discharge() Timestamp {
	if r.Episode == nil {
		return Timestamp{}
	}
	return r.Episode.Discharge
}

// Warning is an advisory message about low-confidence auxiliary data.
type Warning struct {
	Code    string `json:"code"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Source + ": " + w.Message + " (" + w.Code + ")"
}

// Result is the output of one pipeline run.
type Result struct {
	Records  []Record
	Warnings []Warning

	// Optional columns present in the export.
	TrackOrganism   bool
	TrackWard       bool
	TrackName       bool
	TrackSex        bool
	TrackBirth      bool
	RegistryChecked bool
}

// Counts returns the number of records per outcome.
func (r *Result) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, len(outcomeNames))
	for _, rec := range r.Records {
		counts[rec.Outcome]++
	}
	return counts
}
