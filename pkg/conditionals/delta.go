package conditionals

// Effects is a compact description of the changes a node entry or a choice
// makes to player state. Stat deltas are clamped by the applier; flag
// operations are idempotent.
type Effects struct {
	Trust    int `json:"trust,omitempty" yaml:"trust,omitempty"`
	Health   int `json:"health,omitempty" yaml:"health,omitempty"`
	Supplies int `json:"supplies,omitempty" yaml:"supplies,omitempty"`
	Morale   int `json:"morale,omitempty" yaml:"morale,omitempty"`

	// Deltas for author-defined stats, keyed by stat name
	Stats map[string]int `json:"stats,omitempty" yaml:"stats,omitempty"`

	SetFlags   []string `json:"set_flags,omitempty" yaml:"set_flags,omitempty"`
	UnsetFlags []string `json:"unset_flags,omitempty" yaml:"unset_flags,omitempty"`

	AdvanceDay int `json:"advance_day,omitempty" yaml:"advance_day,omitempty"`
}

// StatDelta is one named stat change.
type StatDelta struct {
	Stat  string
	Delta int
}

// Deltas lists the non-zero stat deltas in a stable order: known stats first,
// then author-defined stats sorted by name.
func (e *Effects) Deltas() []StatDelta {
	if e == nil {
		return nil
	}
	var deltas []StatDelta
	add := func(stat string, d int) {
		if d != 0 {
			deltas = append(deltas, StatDelta{Stat: stat, Delta: d})
		}
	}
	add("trust", e.Trust)
	add("health", e.Health)
	add("supplies", e.Supplies)
	add("morale", e.Morale)
	for _, name := range sortedKeys(e.Stats) {
		add(name, e.Stats[name])
	}
	return deltas
}

// IsEmpty checks if the Effects change nothing
func (e *Effects) IsEmpty() bool {
	return e == nil || (len(e.Deltas()) == 0 &&
		len(e.SetFlags) == 0 &&
		len(e.UnsetFlags) == 0 &&
		e.AdvanceDay == 0)
}
