// Package assemble builds the nested BORIS project document from the
// collections the extraction pass produced, filling the project-level
// fields the export never carried with deterministic defaults.
package assemble

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/harrison/borisrec/internal/extract"
	"github.com/harrison/borisrec/internal/models"
)

// ErrAssembly reports an internal invariant violation in the assembled
// document. It should not occur when the input came from the extractor,
// but the document is checked before it reaches the writer.
var ErrAssembly = errors.New("project assembly failed")

// Options configure document assembly.
type Options struct {
	// ProjectName overrides the default project name (the first
	// observation's identifier).
	ProjectName string

	// Now supplies the project creation timestamp, the only
	// non-deterministic value in the document. Nil means time.Now.
	Now func() time.Time
}

// Build assembles a complete, loadable BORIS project from an extraction
// result and validates referential closure before returning it.
func Build(res *extract.Result, opts Options) (*models.Project, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	name := opts.ProjectName
	if name == "" && len(res.Observations) > 0 {
		name = res.Observations[0].ID
	}

	p := &models.Project{
		TimeFormat:           "hh:mm:ss",
		Date:                 now().Format("2006-01-02T15:04:05"),
		Name:                 name,
		Description:          "Restored from CSV export",
		FormatVersion:        models.ProjectFormatVersion,
		Subjects:             buildSubjects(res.Subjects),
		Behaviors:            buildBehaviors(res.Behaviors),
		Observations:         buildObservations(res.Observations),
		BehavioralCategories: categories(res.Behaviors),
		IndependentVariables: map[string]any{},
		CodingMap:            map[string]any{},
		BehaviorsCodingMap:   []any{},
		Converters:           map[string]any{},
	}
	p.CategoriesConfig = buildCategoriesConfig(p.BehavioralCategories)

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	return p, nil
}

// buildSubjects keys subjects "0".."n" over the names in sorted order, so
// keys are stable across runs regardless of row order.
func buildSubjects(names []string) map[string]models.Subject {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	conf := make(map[string]models.Subject, len(sorted))
	for i, name := range sorted {
		conf[strconv.Itoa(i)] = models.Subject{Name: name}
	}
	return conf
}

// buildBehaviors keys ethogram entries "0".."n" over the behavior codes in
// sorted order. A behavior seen as START/STOP/STATE anywhere becomes a
// state event; everything else is a point event.
func buildBehaviors(behaviors []extract.Behavior) map[string]models.Behavior {
	sorted := append([]extract.Behavior(nil), behaviors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	conf := make(map[string]models.Behavior, len(sorted))
	for i, b := range sorted {
		eventType := "Point event"
		if b.State {
			eventType = "State event"
		}

		modifiers := append([]string(nil), b.Modifiers...)
		sort.Strings(modifiers)

		conf[strconv.Itoa(i)] = models.Behavior{
			Type:      eventType,
			Code:      b.Code,
			Color:     "#aaaaaa",
			Category:  b.Category,
			Modifiers: models.Modifiers{Values: modifiers},
		}
	}
	return conf
}

func buildObservations(observations []extract.Observation) map[string]models.Observation {
	out := make(map[string]models.Observation, len(observations))
	for _, obs := range observations {
		out[obs.ID] = buildObservation(obs)
	}
	return out
}

func buildObservation(obs extract.Observation) models.Observation {
	events := make([]models.Event, len(obs.Events))
	for i, ev := range obs.Events {
		events[i] = models.Event(ev)
	}

	files := map[string][]string{}
	for slot := 1; slot <= 8; slot++ {
		files[strconv.Itoa(slot)] = []string{}
	}

	info := models.MediaInfo{
		Length:    map[string]float64{},
		FPS:       map[string]float64{},
		HasVideo:  map[string]bool{},
		HasAudio:  map[string]bool{},
		Offset:    map[string]float64{"1": 0},
		ZoomLevel: map[string]float64{"1": 1},
	}
	if obs.MediaFile != "" {
		files["1"] = []string{obs.MediaFile}
		info.Length[obs.MediaFile] = obs.MediaDuration
		info.FPS[obs.MediaFile] = obs.FPS
		info.HasVideo[obs.MediaFile] = true
		info.HasAudio[obs.MediaFile] = true
	}

	return models.Observation{
		File:                 files,
		Type:                 "MEDIA",
		Date:                 obs.Date,
		Events:               events,
		IndependentVariables: map[string]string{},
		ImageDisplayDuration: 1,
		MediaInfo:            info,
	}
}

// categories collects the distinct non-empty behavioral categories, sorted
// for deterministic output.
func categories(behaviors []extract.Behavior) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range behaviors {
		if b.Category != "" && !seen[b.Category] {
			seen[b.Category] = true
			out = append(out, b.Category)
		}
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func buildCategoriesConfig(categories []string) map[string]models.CategoryConfig {
	conf := make(map[string]models.CategoryConfig, len(categories))
	for i, cat := range categories {
		conf[strconv.Itoa(i)] = models.CategoryConfig{Name: cat}
	}
	return conf
}
