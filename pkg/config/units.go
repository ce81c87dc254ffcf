package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts the d and w units on top of
// the time.ParseDuration syntax.
type Duration time.Duration

// Common durations.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

var (
	durationUnits = map[string]time.Duration{
		"ns": time.Nanosecond,
		"us": time.Microsecond,
		"µs": time.Microsecond,
		"ms": time.Millisecond,
		"s":  time.Second,
		"m":  time.Minute,
		"h":  time.Hour,
		"d":  Day,
		"w":  Week,
	}
	durationTerm = regexp.MustCompile(`([0-9]*\.?[0-9]+)([a-zµ]+)`)
)

// ParseDuration parses a duration string. An empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !strings.ContainsAny(s, "dw") {
		return time.ParseDuration(s)
	}

	terms := durationTerm.FindAllStringSubmatch(s, -1)
	if len(terms) == 0 || strings.Join(flatten(terms), "") != s {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	var total time.Duration
	for _, term := range terms {
		val, err := strconv.ParseFloat(term[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration: %s", term[1])
		}
		unit, ok := durationUnits[term[2]]
		if !ok {
			return 0, fmt.Errorf("unknown unit: %s", term[2])
		}
		total += time.Duration(val * float64(unit))
	}
	return total, nil
}

func flatten(terms [][]string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t[0]
	}
	return out
}

// Distance is a position or length along the vehicle axis in meters.
type Distance float64

// UnmarshalYAML accepts plain numbers as well as strings with a unit.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err == nil {
		*d = Distance(f)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dist, err := ParseDistance(s)
	if err != nil {
		return err
	}
	*d = Distance(dist)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Distance) MarshalYAML() (any, error) {
	return fmt.Sprintf("%.2fm", float64(d)), nil
}

// distanceUnits is checked in order; longer suffixes come first.
var distanceUnits = []struct {
	suffix string
	meters float64
}{
	{"cm", 0.01},
	{"mm", 0.001},
	{"ft", 0.3048},
	{"in", 0.0254},
	{"m", 1},
}

// ParseDistance parses a distance string ("1.6m", "-40ft", "120cm") into
// meters. Unitless values are meters.
func ParseDistance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	num, mult := s, 1.0
	for _, u := range distanceUnits {
		if strings.HasSuffix(s, u.suffix) {
			num, mult = strings.TrimSuffix(s, u.suffix), u.meters
			break
		}
	}

	val, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q: %w", s, err)
	}
	return val * mult, nil
}
