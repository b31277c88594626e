package export

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Layout represents the layout of a BORIS CSV export
type Layout int

const (
	// LayoutUnknown represents an unrecognized export layout
	LayoutUnknown Layout = iota
	// LayoutStandard represents the standard per-observation export
	LayoutStandard
	// LayoutAggregated represents the aggregated multi-observation export
	LayoutAggregated
)

// String returns the string representation of the Layout
func (l Layout) String() string {
	switch l {
	case LayoutStandard:
		return "standard"
	case LayoutAggregated:
		return "aggregated"
	default:
		return "unknown"
	}
}

// Logical roles a column can play in an export. The concrete column name
// behind each role depends on the detected layout (see layouts.yaml).
const (
	RoleObservation   = "observation"
	RoleSubject       = "subject"
	RoleBehavior      = "behavior"
	RoleBehaviorType  = "behavior_type"
	RoleCategory      = "category"
	RoleTime          = "time"
	RoleStart         = "start"
	RoleStop          = "stop"
	RoleMedia         = "media"
	RoleDate          = "date"
	RoleMediaDuration = "media_duration"
	RoleFPS           = "fps"
	RoleComment       = "comment"
	RoleImageIndex    = "image_index"
)

//go:embed layouts.yaml
var layoutsYAML []byte

// layoutSpec is one layout definition from layouts.yaml
type layoutSpec struct {
	Markers  []string            `yaml:"markers"`
	Required []string            `yaml:"required"`
	Roles    map[string][]string `yaml:"roles"`
}

type layoutsFile struct {
	Layouts map[string]layoutSpec `yaml:"layouts"`
}

var (
	layoutsOnce sync.Once
	layoutSpecs map[string]layoutSpec
	layoutsErr  error
)

func loadLayouts() (map[string]layoutSpec, error) {
	layoutsOnce.Do(func() {
		var f layoutsFile
		if err := yaml.Unmarshal(layoutsYAML, &f); err != nil {
			layoutsErr = fmt.Errorf("failed to parse embedded layout definitions: %w", err)
			return
		}
		layoutSpecs = f.Layouts
	})
	return layoutSpecs, layoutsErr
}

// FieldMap resolves logical roles to the concrete column names of one
// detected layout. It is built once from the header at detection time;
// per-row access never re-checks column presence.
type FieldMap struct {
	Layout Layout

	columns map[string]string // role -> column name present in the header

	// ModifierColumns lists every "Modifier*" column in header order.
	// Exports name these "Modifier #1", "Modifier #2", ... depending on
	// how many modifier sets the original project defined.
	ModifierColumns []string
}

// Column returns the column name bound to a logical role and whether the
// role resolved against the header.
func (m *FieldMap) Column(role string) (string, bool) {
	col, ok := m.columns[role]
	return col, ok
}

// Value returns the row value for a logical role, or "" if the role did not
// resolve against the header or the row has no value for it.
func (m *FieldMap) Value(row Row, role string) string {
	col, ok := m.columns[role]
	if !ok {
		return ""
	}
	return row.Get(col)
}

// Modifier returns the first non-empty modifier value in the row, scanning
// the Modifier* columns in header order.
func (m *FieldMap) Modifier(row Row) string {
	for _, col := range m.ModifierColumns {
		if v := strings.TrimSpace(row.Get(col)); v != "" {
			return v
		}
	}
	return ""
}

// DetectLayout classifies a header as standard or aggregated and returns the
// field map for the matching layout. It is a pure function of the header:
// a layout matches when all of its marker columns are present.
//
// Returns an error wrapping ErrFormat if the header matches neither known
// layout, or if a required role cannot be resolved against the header.
func DetectLayout(header []string) (*FieldMap, error) {
	specs, err := loadLayouts()
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}

	layout := LayoutUnknown
	var spec layoutSpec

	// Aggregated markers are checked first: aggregated exports may also
	// carry a "Behavior type" column, which would shadow the standard check.
	for _, name := range []string{"aggregated", "standard"} {
		candidate, ok := specs[name]
		if !ok {
			continue
		}
		if hasAll(present, candidate.Markers) {
			spec = candidate
			if name == "aggregated" {
				layout = LayoutAggregated
			} else {
				layout = LayoutStandard
			}
			break
		}
	}

	if layout == LayoutUnknown {
		return nil, fmt.Errorf("%w: header matches neither the standard export (%s) nor the aggregated export (%s)",
			ErrFormat,
			strings.Join(specs["standard"].Markers, ", "),
			strings.Join(specs["aggregated"].Markers, ", "))
	}

	fm := &FieldMap{
		Layout:  layout,
		columns: make(map[string]string, len(spec.Roles)),
	}
	for role, candidates := range spec.Roles {
		for _, col := range candidates {
			if present[col] {
				fm.columns[role] = col
				break
			}
		}
	}
	for _, col := range header {
		if strings.HasPrefix(strings.TrimSpace(col), "Modifier") {
			fm.ModifierColumns = append(fm.ModifierColumns, strings.TrimSpace(col))
		}
	}

	for _, role := range spec.Required {
		if _, ok := fm.columns[role]; !ok {
			return nil, fmt.Errorf("%w: %s export is missing the %q column", ErrFormat, layout, roleColumnName(spec, role))
		}
	}

	return fm, nil
}

// roleColumnName names the preferred column for a role, for diagnostics.
func roleColumnName(spec layoutSpec, role string) string {
	if candidates := spec.Roles[role]; len(candidates) > 0 {
		return candidates[0]
	}
	return role
}

func hasAll(present map[string]bool, cols []string) bool {
	for _, col := range cols {
		if !present[col] {
			return false
		}
	}
	return true
}
