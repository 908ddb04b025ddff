package state

import (
	"maps"
	"math"
	"strings"
)

// StatID identifies one of the stats the engine knows about.
// Anything else an author declares lives in the Stats.Extra bucket.
type StatID int

const (
	StatUnknown StatID = iota
	StatTrust
	StatHealth
	StatSupplies
	StatMorale
)

// KnownStats lists every known stat in display order.
var KnownStats = []StatID{StatTrust, StatHealth, StatSupplies, StatMorale}

func (s StatID) String() string {
	switch s {
	case StatTrust:
		return "trust"
	case StatHealth:
		return "health"
	case StatSupplies:
		return "supplies"
	case StatMorale:
		return "morale"
	default:
		return "unknown"
	}
}

// ParseStat maps a stat name to its StatID. Names are case-insensitive and
// the older "trust_level" spelling is accepted.
func ParseStat(name string) StatID {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trust", "trust_level":
		return StatTrust
	case "health":
		return StatHealth
	case "supplies":
		return StatSupplies
	case "morale":
		return StatMorale
	default:
		return StatUnknown
	}
}

// StatDef declares the starting value and the inclusive range of a stat.
type StatDef struct {
	Default int `json:"default" yaml:"default"`
	Min     int `json:"min" yaml:"min"`
	Max     int `json:"max" yaml:"max"`
}

// Clamp saturates v into [Min, Max].
func (d StatDef) Clamp(v int) int {
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// DefaultStatDef applies to any stat the story metadata does not declare.
var DefaultStatDef = StatDef{Default: 0, Min: 0, Max: 10}

// DefaultStatDefs are used when a story declares no stats at all.
func DefaultStatDefs() map[string]StatDef {
	return map[string]StatDef{
		"trust":    {Default: 3, Min: 0, Max: 10},
		"health":   {Default: 10, Min: 0, Max: 10},
		"supplies": {Default: 5, Min: 0, Max: 10},
		"morale":   {Default: 5, Min: 0, Max: 10},
	}
}

// LookupStatDef finds the definition for a stat name, falling back to DefaultStatDef.
func LookupStatDef(defs map[string]StatDef, name string) StatDef {
	if d, ok := defs[name]; ok {
		return d
	}
	if id := ParseStat(name); id != StatUnknown {
		if d, ok := defs[id.String()]; ok {
			return d
		}
	}
	return DefaultStatDef
}

// Stats holds the player's bounded integer stats.
type Stats struct {
	Trust    int `json:"trust"`
	Health   int `json:"health"`
	Supplies int `json:"supplies"`
	Morale   int `json:"morale"`

	Extra map[string]int `json:"extra,omitempty"` // Author-defined stats
}

// NewStats seeds stats from their declared defaults, clamped to their range.
func NewStats(defs map[string]StatDef) Stats {
	var s Stats
	for _, id := range KnownStats {
		def := LookupStatDef(defs, id.String())
		s.set(id.String(), def.Clamp(def.Default))
	}
	for name, def := range defs {
		if ParseStat(name) == StatUnknown {
			if v := def.Clamp(def.Default); v != 0 {
				s.set(name, v)
			}
		}
	}
	return s
}

// Get returns a stat by name. Undeclared stats read as zero.
func (s Stats) Get(name string) int {
	switch ParseStat(name) {
	case StatTrust:
		return s.Trust
	case StatHealth:
		return s.Health
	case StatSupplies:
		return s.Supplies
	case StatMorale:
		return s.Morale
	default:
		return s.Extra[name]
	}
}

// Modify adds delta to a stat and clamps the result to its definition.
// The addition saturates at the int limits before clamping.
func (s *Stats) Modify(name string, delta int, def StatDef) int {
	v := def.Clamp(saturatingAdd(s.Get(name), delta))
	s.set(name, v)
	return v
}

func saturatingAdd(a, b int) int {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt
	case b < 0 && sum > a:
		return math.MinInt
	}
	return sum
}

func (s *Stats) set(name string, v int) {
	switch ParseStat(name) {
	case StatTrust:
		s.Trust = v
	case StatHealth:
		s.Health = v
	case StatSupplies:
		s.Supplies = v
	case StatMorale:
		s.Morale = v
	default:
		if s.Extra == nil {
			s.Extra = make(map[string]int)
		}
		s.Extra[name] = v
	}
}

func (s Stats) clone() Stats {
	c := s
	if s.Extra != nil {
		c.Extra = maps.Clone(s.Extra)
	}
	return c
}
