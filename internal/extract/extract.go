// Package extract walks the rows of one export exactly once and accumulates
// the distinct subjects, behaviors with their modifiers, and observations
// with their ordered event lists.
package extract

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/harrison/borisrec/internal/export"
)

// defaultFPS is used when the export carries no FPS column and the caller
// did not override it.
const defaultFPS = 30.0

// Event is one coded behavioral event inside an observation.
type Event struct {
	Time     float64
	Subject  string
	Behavior string
	Modifier string
	Comment  string
	Frame    int
}

// Behavior is one distinct behavior code with everything observed about it.
type Behavior struct {
	Code      string
	Category  string
	Modifiers []string // deduplicated, first-appearance order
	State     bool     // seen as a state event (START/STOP/STATE)
}

// Observation is one recorded session, split out by the observation
// identifier column, with the media metadata taken from its first row.
type Observation struct {
	ID            string
	Date          string
	MediaFile     string
	MediaDuration float64
	FPS           float64
	Events        []Event
}

// Result holds everything one pass over the export produced.
type Result struct {
	Layout       export.Layout
	Subjects     []string      // deduplicated, first-appearance order
	Behaviors    []Behavior    // deduplicated by code, first-appearance order
	Observations []Observation // first-appearance order
	Skipped      int           // tolerated malformed rows (empty subject/behavior, unparseable time)
}

// Options configure one extraction pass.
type Options struct {
	// FallbackObservationID names the single synthesized observation used
	// when the export has no observation identifier column (or the value
	// is empty). Typically the input file name without extension.
	FallbackObservationID string

	// FPS is the fallback frame rate when the export carries none.
	// Zero means 30.
	FPS float64
}

// Run performs the single extraction pass over r using the detected
// layout's field map. Rows with an empty subject or behavior are counted
// in Result.Skipped and dropped; they never abort the run.
//
// Returns an error wrapping export.ErrFormat if the export has zero data
// rows.
func Run(r *export.Reader, fm *export.FieldMap, opts Options) (*Result, error) {
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}

	acc := newAccumulator(fm.Layout)
	rows := 0

	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows++

		if !acc.addRow(row, fm, opts) {
			acc.result.Skipped++
		}
	}

	if rows == 0 {
		return nil, fmt.Errorf("%w: export has no data rows", export.ErrFormat)
	}

	return acc.result, nil
}

// rowEvent is one fully parsed row, validated before anything is committed
// to the accumulator so that a skipped row leaves no trace.
type rowEvent struct {
	subject   string
	behavior  string
	modifier  string
	comment   string
	time      float64
	stop      float64 // aggregated layout only
	state     bool    // aggregated layout: emit START and STOP events
	frameCol  string
	hasMarker bool // standard layout START/STOP/STATE marker
}

// accumulator threads the extraction state through the row pass. The
// skipped-row count lives on the result, not in package state.
type accumulator struct {
	result *Result

	subjectIdx  map[string]bool
	behaviorIdx map[string]int
	modifierIdx map[string]map[string]bool // behavior code -> modifier set
	obsIdx      map[string]int
}

func newAccumulator(layout export.Layout) *accumulator {
	return &accumulator{
		result:      &Result{Layout: layout},
		subjectIdx:  make(map[string]bool),
		behaviorIdx: make(map[string]int),
		modifierIdx: make(map[string]map[string]bool),
		obsIdx:      make(map[string]int),
	}
}

// addRow folds one row into the accumulator. It reports false when the row
// is malformed in a tolerated way and was dropped. Parsing happens up
// front: a dropped row must not register subjects, behaviors or
// observations.
func (a *accumulator) addRow(row export.Row, fm *export.FieldMap, opts Options) bool {
	ev, ok := parseRow(row, fm)
	if !ok {
		return false
	}

	obs := a.observation(row, fm, opts)
	a.addSubject(ev.subject)

	b := a.behavior(ev.behavior)
	if cat := strings.TrimSpace(fm.Value(row, export.RoleCategory)); cat != "" && cat != "NA" {
		b.Category = cat
	}
	for _, m := range strings.Split(ev.modifier, ",") {
		if m = strings.TrimSpace(m); m != "" {
			a.addModifier(b, m)
		}
	}

	if fm.Layout == export.LayoutAggregated {
		a.appendAggregated(obs, b, ev)
	} else {
		a.appendStandard(obs, b, ev)
	}
	return true
}

// parseRow validates and parses one row into a rowEvent without touching
// any accumulator state.
func parseRow(row export.Row, fm *export.FieldMap) (rowEvent, bool) {
	ev := rowEvent{
		subject:  strings.TrimSpace(fm.Value(row, export.RoleSubject)),
		behavior: strings.TrimSpace(fm.Value(row, export.RoleBehavior)),
		modifier: fm.Modifier(row),
		comment:  strings.TrimSpace(fm.Value(row, export.RoleComment)),
		frameCol: strings.TrimSpace(fm.Value(row, export.RoleImageIndex)),
	}
	if ev.subject == "" || ev.behavior == "" {
		return rowEvent{}, false
	}
	if ev.comment == "NA" {
		ev.comment = ""
	}

	behType := strings.ToUpper(strings.TrimSpace(fm.Value(row, export.RoleBehaviorType)))

	if fm.Layout == export.LayoutAggregated {
		start, err := ParseNumber(fm.Value(row, export.RoleStart))
		if err != nil {
			return rowEvent{}, false
		}
		stop, err := ParseNumber(fm.Value(row, export.RoleStop))
		if err != nil {
			return rowEvent{}, false
		}
		ev.time, ev.stop = start, stop
		// When the export carries no behavior type, a near-zero duration
		// marks a point event.
		point := behType == "POINT" || (behType == "" && abs(stop-start) < 0.001)
		ev.state = !point
		return ev, true
	}

	t, err := ParseNumber(fm.Value(row, export.RoleTime))
	if err != nil {
		return rowEvent{}, false
	}
	ev.time = t
	ev.hasMarker = behType == "START" || behType == "STOP" || behType == "STATE"
	return ev, true
}

// appendStandard emits the single event of one standard-layout row.
func (a *accumulator) appendStandard(obs *Observation, b *Behavior, ev rowEvent) {
	if ev.hasMarker {
		b.State = true
	}
	obs.Events = append(obs.Events, Event{
		Time:     ev.time,
		Subject:  ev.subject,
		Behavior: b.Code,
		Modifier: ev.modifier,
		Comment:  ev.comment,
		Frame:    frameIndex(ev.frameCol, ev.time, obs.FPS),
	})
}

// appendAggregated emits the events of one aggregated-layout row: a single
// event for point behaviors, a START and a STOP event for state behaviors
// (modifier and comment only on the START event).
func (a *accumulator) appendAggregated(obs *Observation, b *Behavior, ev rowEvent) {
	if !ev.state {
		obs.Events = append(obs.Events, Event{
			Time:     ev.time,
			Subject:  ev.subject,
			Behavior: b.Code,
			Modifier: ev.modifier,
			Comment:  ev.comment,
			Frame:    int(ev.time * obs.FPS),
		})
		return
	}

	b.State = true
	obs.Events = append(obs.Events,
		Event{
			Time:     ev.time,
			Subject:  ev.subject,
			Behavior: b.Code,
			Modifier: ev.modifier,
			Comment:  ev.comment,
			Frame:    int(ev.time * obs.FPS),
		},
		Event{
			Time:     ev.stop,
			Subject:  ev.subject,
			Behavior: b.Code,
			Frame:    int(ev.stop * obs.FPS),
		},
	)
}

// observation returns the observation this row belongs to, creating it on
// first sight with the media metadata from this row.
func (a *accumulator) observation(row export.Row, fm *export.FieldMap, opts Options) *Observation {
	id := strings.TrimSpace(fm.Value(row, export.RoleObservation))
	if id == "" {
		id = opts.FallbackObservationID
	}

	if i, ok := a.obsIdx[id]; ok {
		return &a.result.Observations[i]
	}

	fps, err := ParseNumber(fm.Value(row, export.RoleFPS))
	if err != nil || fps <= 0 {
		fps = opts.FPS
	}
	duration, err := ParseNumber(fm.Value(row, export.RoleMediaDuration))
	if err != nil {
		duration = 0
	}

	a.obsIdx[id] = len(a.result.Observations)
	a.result.Observations = append(a.result.Observations, Observation{
		ID:            id,
		Date:          strings.TrimSpace(fm.Value(row, export.RoleDate)),
		MediaFile:     strings.TrimSpace(fm.Value(row, export.RoleMedia)),
		MediaDuration: duration,
		FPS:           fps,
	})
	return &a.result.Observations[len(a.result.Observations)-1]
}

func (a *accumulator) addSubject(name string) {
	if !a.subjectIdx[name] {
		a.subjectIdx[name] = true
		a.result.Subjects = append(a.result.Subjects, name)
	}
}

func (a *accumulator) behavior(code string) *Behavior {
	if i, ok := a.behaviorIdx[code]; ok {
		return &a.result.Behaviors[i]
	}
	a.behaviorIdx[code] = len(a.result.Behaviors)
	a.result.Behaviors = append(a.result.Behaviors, Behavior{Code: code})
	return &a.result.Behaviors[len(a.result.Behaviors)-1]
}

// addModifier unions one modifier into a behavior. Modifiers never leak
// across behaviors: the set is keyed by behavior code.
func (a *accumulator) addModifier(b *Behavior, modifier string) {
	set, ok := a.modifierIdx[b.Code]
	if !ok {
		set = make(map[string]bool)
		a.modifierIdx[b.Code] = set
	}
	if !set[modifier] {
		set[modifier] = true
		b.Modifiers = append(b.Modifiers, modifier)
	}
}

// frameIndex resolves the frame reference of a standard-layout event: the
// Image index column when it parses as an integer, otherwise time
// multiplied by the frame rate.
func frameIndex(imageIndex string, t, fps float64) int {
	if imageIndex != "" {
		if idx, err := strconv.Atoi(imageIndex); err == nil {
			return idx
		}
	}
	return int(t * fps)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
