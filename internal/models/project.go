// Package models defines the BORIS project document. Field names and value
// shapes follow the BORIS 7.0 loader schema exactly; the downstream
// application rejects anything else.
package models

import (
	"encoding/json"
	"fmt"
)

// ProjectFormatVersion is the BORIS project format this tool emits.
const ProjectFormatVersion = "7.0"

// Project is the root of a BORIS project file.
type Project struct {
	TimeFormat           string                    `json:"time_format"`
	Date                 string                    `json:"project_date"`
	Name                 string                    `json:"project_name"`
	Description          string                    `json:"project_description"`
	FormatVersion        string                    `json:"project_format_version"`
	Subjects             map[string]Subject        `json:"subjects_conf"`
	Behaviors            map[string]Behavior       `json:"behaviors_conf"`
	Observations         map[string]Observation    `json:"observations"`
	BehavioralCategories []string                  `json:"behavioral_categories"`
	IndependentVariables map[string]any            `json:"independent_variables"`
	CodingMap            map[string]any            `json:"coding_map"`
	BehaviorsCodingMap   []any                     `json:"behaviors_coding_map"`
	Converters           map[string]any            `json:"converters"`
	CategoriesConfig     map[string]CategoryConfig `json:"behavioral_categories_config"`
}

// Subject is one entry of the subjects configuration, keyed by a stable
// numeric string in Project.Subjects.
type Subject struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Behavior is one ethogram entry, keyed by a stable numeric string in
// Project.Behaviors.
type Behavior struct {
	Type        string    `json:"type"` // "State event" or "Point event"
	Key         string    `json:"key"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Category    string    `json:"category"`
	Modifiers   Modifiers `json:"modifiers"`
	Excluded    string    `json:"excluded"`
	CodingMap   string    `json:"coding map"`
}

// Modifiers is the modifier set of a behavior. BORIS encodes an empty set
// as the empty string and a non-empty set as a numbered modifier-group
// object; both shapes are handled here.
type Modifiers struct {
	Values []string
}

type modifierGroup struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        int      `json:"type"`
	AskAtStop   bool     `json:"ask at stop"`
	Values      []string `json:"values"`
}

// MarshalJSON encodes the set as "" when empty, otherwise as the BORIS
// modifier-group object under key "0".
func (m Modifiers) MarshalJSON() ([]byte, error) {
	if len(m.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(map[string]modifierGroup{
		"0": {Values: m.Values},
	})
}

// UnmarshalJSON accepts both encodings.
func (m *Modifiers) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			return fmt.Errorf("unexpected modifiers string %q", s)
		}
		m.Values = nil
		return nil
	}

	var groups map[string]modifierGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return fmt.Errorf("failed to decode modifiers: %w", err)
	}
	m.Values = nil
	for _, g := range groups {
		m.Values = append(m.Values, g.Values...)
	}
	return nil
}

// Event is one coded event inside an observation. BORIS stores events as
// heterogeneous arrays: [time, subject, behavior, modifier, comment, frame].
type Event struct {
	Time     float64
	Subject  string
	Behavior string
	Modifier string
	Comment  string
	Frame    int
}

// MarshalJSON encodes the event as the six-element BORIS array.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Time, e.Subject, e.Behavior, e.Modifier, e.Comment, e.Frame})
}

// UnmarshalJSON decodes the six-element BORIS array.
func (e *Event) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	if len(fields) != 6 {
		return fmt.Errorf("event has %d fields, expected 6", len(fields))
	}

	targets := []any{&e.Time, &e.Subject, &e.Behavior, &e.Modifier, &e.Comment, &e.Frame}
	for i, raw := range fields {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("failed to decode event field %d: %w", i, err)
		}
	}
	return nil
}

// MediaInfo carries per-media-file playback metadata, all keyed by the
// media file name (offset and zoom by player slot).
type MediaInfo struct {
	Length    map[string]float64 `json:"length"`
	FPS       map[string]float64 `json:"fps"`
	HasVideo  map[string]bool    `json:"hasVideo"`
	HasAudio  map[string]bool    `json:"hasAudio"`
	Offset    map[string]float64 `json:"offset"`
	ZoomLevel map[string]float64 `json:"zoom level"`
}

// Observation is one recorded session, keyed by its identifier in
// Project.Observations. BORIS media observations carry eight player slots;
// only the first is populated on recovery.
type Observation struct {
	File                        map[string][]string `json:"file"`
	Type                        string              `json:"type"`
	Date                        string              `json:"date"`
	Description                 string              `json:"description"`
	TimeOffset                  float64             `json:"time offset"`
	Events                      []Event             `json:"events"`
	TimeInterval                [2]float64          `json:"observation time interval"`
	IndependentVariables        map[string]string   `json:"independent_variables"`
	VisualizeSpectrogram        bool                `json:"visualize_spectrogram"`
	VisualizeWaveform           bool                `json:"visualize_waveform"`
	MediaCreationDateAsOffset   bool                `json:"media_creation_date_as_offset"`
	MediaScanSamplingDuration   int                 `json:"media_scan_sampling_duration"`
	ImageDisplayDuration        int                 `json:"image_display_duration"`
	CloseBehaviorsBetweenVideos bool                `json:"close_behaviors_between_videos"`
	MediaInfo                   MediaInfo           `json:"media_info"`
}

// CategoryConfig is one entry of the behavioral categories configuration.
type CategoryConfig struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Validate checks referential closure: every subject and behavior
// referenced from any observation's events must exist in the top-level
// subject and ethogram configurations.
func (p *Project) Validate() error {
	subjects := make(map[string]bool, len(p.Subjects))
	for _, s := range p.Subjects {
		subjects[s.Name] = true
	}
	behaviors := make(map[string]bool, len(p.Behaviors))
	for _, b := range p.Behaviors {
		behaviors[b.Code] = true
	}

	for id, obs := range p.Observations {
		for _, ev := range obs.Events {
			if !subjects[ev.Subject] {
				return fmt.Errorf("observation %q references subject %q missing from subjects_conf", id, ev.Subject)
			}
			if !behaviors[ev.Behavior] {
				return fmt.Errorf("observation %q references behavior %q missing from behaviors_conf", id, ev.Behavior)
			}
		}
	}
	return nil
}
