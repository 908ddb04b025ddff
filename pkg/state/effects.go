package state

import (
	"maps"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
)

// EffectResult reports what an effect application changed.
type EffectResult struct {
	Touched       []string // Stat names that received a non-zero delta, in application order
	HealthTouched bool     // A health delta was applied; drives the global override check
	FlagsChanged  bool
	DayAdvanced   bool
}

// TouchedStat reports whether the named stat received a delta.
func (r EffectResult) TouchedStat(name string) bool {
	id := ParseStat(name)
	for _, t := range r.Touched {
		if t == name || (id != StatUnknown && ParseStat(t) == id) {
			return true
		}
	}
	return false
}

// ApplyEffects applies stat deltas (clamped after each delta), flag changes
// and day advances. The update is computed on a copy and swapped in whole,
// so callers never observe a partially applied effect.
func (ps *PlayerState) ApplyEffects(effects *conditionals.Effects, defs map[string]StatDef) EffectResult {
	var result EffectResult
	if effects.IsEmpty() {
		return result
	}

	stats := ps.Stats.clone()
	flags := maps.Clone(ps.Flags)
	if flags == nil {
		flags = make(map[string]bool)
	}

	for _, d := range effects.Deltas() {
		stats.Modify(d.Stat, d.Delta, LookupStatDef(defs, d.Stat))
		result.Touched = append(result.Touched, d.Stat)
		if ParseStat(d.Stat) == StatHealth {
			result.HealthTouched = true
		}
	}

	for _, flag := range effects.SetFlags {
		if !flags[flag] {
			flags[flag] = true
			result.FlagsChanged = true
		}
	}
	for _, flag := range effects.UnsetFlags {
		if _, ok := flags[flag]; ok {
			delete(flags, flag)
			result.FlagsChanged = true
		}
	}

	day := ps.Day
	if effects.AdvanceDay > 0 {
		day += effects.AdvanceDay
		result.DayAdvanced = true
	}

	ps.Stats = stats
	ps.Flags = flags
	ps.Day = day
	return result
}
