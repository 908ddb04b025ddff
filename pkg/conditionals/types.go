package conditionals

import "sort"

// BranchCondition defines the state a player must be in for a branch or choice to apply.
// All specified requirements must hold; absent bounds are vacuously satisfied.
type BranchCondition struct {
	Flags    []string `json:"flags,omitempty" yaml:"flags,omitempty"`         // All flags must be set
	NotFlags []string `json:"not_flags,omitempty" yaml:"not_flags,omitempty"` // None of these flags may be set

	MinTrust    *int `json:"min_trust,omitempty" yaml:"min_trust,omitempty"`
	MaxTrust    *int `json:"max_trust,omitempty" yaml:"max_trust,omitempty"`
	MinHealth   *int `json:"min_health,omitempty" yaml:"min_health,omitempty"`
	MaxHealth   *int `json:"max_health,omitempty" yaml:"max_health,omitempty"`
	MinSupplies *int `json:"min_supplies,omitempty" yaml:"min_supplies,omitempty"`
	MaxSupplies *int `json:"max_supplies,omitempty" yaml:"max_supplies,omitempty"`
	MinMorale   *int `json:"min_morale,omitempty" yaml:"min_morale,omitempty"`
	MaxMorale   *int `json:"max_morale,omitempty" yaml:"max_morale,omitempty"`

	// Bounds on author-defined stats, keyed by stat name
	MinStats map[string]int `json:"min_stats,omitempty" yaml:"min_stats,omitempty"`
	MaxStats map[string]int `json:"max_stats,omitempty" yaml:"max_stats,omitempty"`

	// Default marks the catch-all branch. It is always true and should be listed last.
	Default bool `json:"default,omitempty" yaml:"default,omitempty"`
}

// StateView provides the minimal interface needed to evaluate conditions.
// This avoids an import cycle with the state package.
type StateView interface {
	HasFlag(flag string) bool
	StatValue(name string) int
}

// StatBound is a single stat threshold extracted from a BranchCondition.
type StatBound struct {
	Stat  string
	Value int
	Max   bool // false = minimum (value >= bound), true = maximum (value <= bound)
}

// Bounds lists every stat threshold declared by the condition in a stable order.
func (c BranchCondition) Bounds() []StatBound {
	var bounds []StatBound
	add := func(stat string, v *int, isMax bool) {
		if v != nil {
			bounds = append(bounds, StatBound{Stat: stat, Value: *v, Max: isMax})
		}
	}
	add("trust", c.MinTrust, false)
	add("trust", c.MaxTrust, true)
	add("health", c.MinHealth, false)
	add("health", c.MaxHealth, true)
	add("supplies", c.MinSupplies, false)
	add("supplies", c.MaxSupplies, true)
	add("morale", c.MinMorale, false)
	add("morale", c.MaxMorale, true)

	for _, name := range sortedKeys(c.MinStats) {
		v := c.MinStats[name]
		add(name, &v, false)
	}
	for _, name := range sortedKeys(c.MaxStats) {
		v := c.MaxStats[name]
		add(name, &v, true)
	}
	return bounds
}

// IsEmpty reports whether the condition declares no requirement at all.
// An empty non-default condition evaluates to true.
func (c BranchCondition) IsEmpty() bool {
	return !c.Default && len(c.Flags) == 0 && len(c.NotFlags) == 0 && len(c.Bounds()) == 0
}

// Evaluate checks whether a condition holds for the given player state.
// It has no side effects and may be called any number of times.
func Evaluate(cond BranchCondition, view StateView) bool {
	if cond.Default {
		return true
	}

	for _, flag := range cond.Flags {
		if !view.HasFlag(flag) {
			return false
		}
	}

	for _, flag := range cond.NotFlags {
		if view.HasFlag(flag) {
			return false
		}
	}

	for _, b := range cond.Bounds() {
		v := view.StatValue(b.Stat)
		if b.Max && v > b.Value {
			return false
		}
		if !b.Max && v < b.Value {
			return false
		}
	}

	return true
}

// EvaluateOptional treats a nil condition as always satisfied.
func EvaluateOptional(cond *BranchCondition, view StateView) bool {
	if cond == nil {
		return true
	}
	return Evaluate(*cond, view)
}

// IntPtr is a convenience for building conditions in code.
func IntPtr(v int) *int {
	return &v
}

func sortedKeys(m map[string]int) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
