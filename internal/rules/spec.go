package rules

import (
	"fmt"
	"time"
)

// Constraint type identifiers accepted in a planning profile.
const (
	TypeExcludeTag   = "exclude_tag"
	TypeIncludeTag   = "include_tag"
	TypeMaxTag       = "max_tag"
	TypeNoDuplicates = "no_duplicates"
	TypeRecentlyMade = "recently_made"
	TypeWeekdayEasy  = "weekday_easy"
)

// Spec declares a constraint in configuration. Numeric parameters are
// pointers so that an explicit 0 (e.g. max_count: 0, "never") is kept apart
// from an unset value, which takes the default: max_count 1, window 7,
// days 14, max_effort 5.
type Spec struct {
	Type      string   `mapstructure:"type"`
	Name      string   `mapstructure:"name"`
	Mandatory bool     `mapstructure:"mandatory"`
	Priority  int      `mapstructure:"priority"`
	Tag       string   `mapstructure:"tag"`
	MaxCount  *int     `mapstructure:"max_count"`
	Window    *int     `mapstructure:"window"`
	Days      *int     `mapstructure:"days"`
	MaxEffort *float64 `mapstructure:"max_effort"`
}

// Build turns a Spec into a Constraint. now is used by time-based filters and
// may be nil.
func (s Spec) Build(now func() time.Time) (Constraint, error) {
	if err := s.checkNonNegative(); err != nil {
		return Constraint{}, err
	}

	var f Filter
	switch s.Type {
	case TypeExcludeTag, TypeIncludeTag:
		if s.Tag == "" {
			return Constraint{}, fmt.Errorf("%s constraint requires a tag", s.Type)
		}
		if s.Type == TypeExcludeTag {
			f = ExcludeTag{Tag: s.Tag}
		} else {
			f = IncludeTag{Tag: s.Tag}
		}
	case TypeMaxTag:
		if s.Tag == "" {
			return Constraint{}, fmt.Errorf("%s constraint requires a tag", s.Type)
		}
		f = MaxTagPerWindow{Tag: s.Tag, MaxCount: orDefault(s.MaxCount, 1), Window: orDefault(s.Window, 7)}
	case TypeNoDuplicates:
		f = NoDuplicates{Window: orDefault(s.Window, 7)}
	case TypeRecentlyMade:
		f = RecentlyMade{Days: orDefault(s.Days, 14), Now: now}
	case TypeWeekdayEasy:
		f = WeekdayEffortCap{MaxEffort: orDefault(s.MaxEffort, 5)}
	default:
		return Constraint{}, fmt.Errorf("unknown constraint type %q", s.Type)
	}

	return Constraint{
		Name:      s.Name,
		Mandatory: s.Mandatory,
		Priority:  s.Priority,
		Filter:    f,
	}, nil
}

// BuildAll builds every spec, stopping at the first invalid one.
func BuildAll(specs []Spec, now func() time.Time) ([]Constraint, error) {
	constraints := make([]Constraint, 0, len(specs))
	for i, s := range specs {
		c, err := s.Build(now)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

func (s Spec) checkNonNegative() error {
	for name, v := range map[string]*int{"max_count": s.MaxCount, "window": s.Window, "days": s.Days} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s constraint: %s must not be negative, got %d", s.Type, name, *v)
		}
	}
	if s.MaxEffort != nil && *s.MaxEffort < 0 {
		return fmt.Errorf("%s constraint: max_effort must not be negative, got %g", s.Type, *s.MaxEffort)
	}
	return nil
}

func orDefault[T int | float64](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
