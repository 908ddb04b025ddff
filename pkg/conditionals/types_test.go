package conditionals

import "testing"

// mockStateView implements StateView for testing
type mockStateView struct {
	flags map[string]bool
	stats map[string]int
}

func (m *mockStateView) HasFlag(flag string) bool  { return m.flags[flag] }
func (m *mockStateView) StatValue(name string) int { return m.stats[name] }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		cond     BranchCondition
		view     *mockStateView
		expected bool
	}{
		{
			name:     "empty condition is true",
			cond:     BranchCondition{},
			view:     &mockStateView{},
			expected: true,
		},
		{
			name:     "default short-circuits",
			cond:     BranchCondition{Default: true, Flags: []string{"never_set"}, MinTrust: IntPtr(99)},
			view:     &mockStateView{},
			expected: true,
		},
		{
			name:     "required flag present",
			cond:     BranchCondition{Flags: []string{"has_map"}},
			view:     &mockStateView{flags: map[string]bool{"has_map": true}},
			expected: true,
		},
		{
			name:     "one of two required flags missing",
			cond:     BranchCondition{Flags: []string{"has_map", "has_key"}},
			view:     &mockStateView{flags: map[string]bool{"has_map": true}},
			expected: false,
		},
		{
			name:     "forbidden flag present",
			cond:     BranchCondition{NotFlags: []string{"went_north"}},
			view:     &mockStateView{flags: map[string]bool{"went_north": true}},
			expected: false,
		},
		{
			name:     "min trust satisfied at boundary",
			cond:     BranchCondition{MinTrust: IntPtr(5)},
			view:     &mockStateView{stats: map[string]int{"trust": 5}},
			expected: true,
		},
		{
			name:     "min trust violated",
			cond:     BranchCondition{MinTrust: IntPtr(5)},
			view:     &mockStateView{stats: map[string]int{"trust": 4}},
			expected: false,
		},
		{
			name:     "max health satisfied at boundary",
			cond:     BranchCondition{MaxHealth: IntPtr(0)},
			view:     &mockStateView{stats: map[string]int{"health": 0}},
			expected: true,
		},
		{
			name:     "max health violated",
			cond:     BranchCondition{MaxHealth: IntPtr(2)},
			view:     &mockStateView{stats: map[string]int{"health": 3}},
			expected: false,
		},
		{
			name:     "unknown stat reads as zero",
			cond:     BranchCondition{MinStats: map[string]int{"sanity": 1}},
			view:     &mockStateView{},
			expected: false,
		},
		{
			name:     "unknown stat max bound vacuous at zero",
			cond:     BranchCondition{MaxStats: map[string]int{"sanity": 3}},
			view:     &mockStateView{},
			expected: true,
		},
		{
			name: "flags and bounds combined",
			cond: BranchCondition{
				Flags:       []string{"found_radio"},
				MinTrust:    IntPtr(3),
				MaxSupplies: IntPtr(4),
			},
			view: &mockStateView{
				flags: map[string]bool{"found_radio": true},
				stats: map[string]int{"trust": 7, "supplies": 2},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(tt.cond, tt.view)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestEvaluateOptional(t *testing.T) {
	view := &mockStateView{}
	if !EvaluateOptional(nil, view) {
		t.Error("nil condition should always be satisfied")
	}
	if EvaluateOptional(&BranchCondition{Flags: []string{"x"}}, view) {
		t.Error("unsatisfied condition should be false")
	}
}

func TestBranchCondition_Bounds(t *testing.T) {
	cond := BranchCondition{
		MinTrust:  IntPtr(2),
		MaxHealth: IntPtr(8),
		MinStats:  map[string]int{"zeal": 1, "anger": 2},
	}

	bounds := cond.Bounds()
	if len(bounds) != 4 {
		t.Fatalf("Expected 4 bounds, got %d", len(bounds))
	}

	expected := []StatBound{
		{Stat: "trust", Value: 2},
		{Stat: "health", Value: 8, Max: true},
		{Stat: "anger", Value: 2},
		{Stat: "zeal", Value: 1},
	}
	for i, b := range expected {
		if bounds[i] != b {
			t.Errorf("bound %d: expected %+v, got %+v", i, b, bounds[i])
		}
	}
}

func TestEffects_IsEmpty(t *testing.T) {
	var nilEffects *Effects
	if !nilEffects.IsEmpty() {
		t.Error("nil effects should be empty")
	}
	if !(&Effects{Stats: map[string]int{"zeal": 0}}).IsEmpty() {
		t.Error("zero deltas should be empty")
	}
	if (&Effects{SetFlags: []string{"a"}}).IsEmpty() {
		t.Error("flag effects should not be empty")
	}
	if (&Effects{Health: -1}).IsEmpty() {
		t.Error("health delta should not be empty")
	}
}
