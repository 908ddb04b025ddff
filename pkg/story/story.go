package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/state"
	"gopkg.in/yaml.v3"
)

// AutoChoiceLabel marks a choice that is taken without asking the player.
const AutoChoiceLabel = "..."

// DefaultOverrideStat is watched by a global override that names no stat.
const DefaultOverrideStat = "health"

// Story is the immutable story graph plus its glossaries.
// It is loaded once per process and never mutated after validation.
type Story struct {
	Metadata       Metadata              `json:"metadata" yaml:"metadata"`
	Flags          map[string]string     `json:"flags,omitempty" yaml:"flags,omitempty"`     // Flag glossary, documentation only
	Endings        map[string]EndingInfo `json:"endings,omitempty" yaml:"endings,omitempty"` // Ending key to localized title/description
	GlobalOverride *GlobalOverride       `json:"global_override,omitempty" yaml:"global_override,omitempty"`
	Nodes          map[string]*Node      `json:"nodes" yaml:"nodes"`
}

// Metadata describes the story as a whole.
type Metadata struct {
	Title     LocalizedString          `json:"title" yaml:"title"`
	StartNode string                   `json:"start_node" yaml:"start_node"`
	Stats     map[string]state.StatDef `json:"stats,omitempty" yaml:"stats,omitempty"` // Stat defaults and bounds
	Languages []string                 `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// EndingInfo is the localized presentation of an ending key.
type EndingInfo struct {
	Title       LocalizedString `json:"title" yaml:"title"`
	Description LocalizedString `json:"description" yaml:"description"`
}

// GlobalOverride forces a reroute whenever the watched stat changes and the
// condition holds, regardless of where the player is in the graph.
type GlobalOverride struct {
	Watch     string                       `json:"watch,omitempty" yaml:"watch,omitempty"`
	Condition conditionals.BranchCondition `json:"condition" yaml:"condition"`
	NextNode  string                       `json:"next_node" yaml:"next_node"`
}

// WatchedStat returns the stat the override reacts to.
func (o *GlobalOverride) WatchedStat() string {
	if o.Watch == "" {
		return DefaultOverrideStat
	}
	return o.Watch
}

// Node is one step of the narrative.
type Node struct {
	ID       string                `json:"id,omitempty" yaml:"id,omitempty"` // Filled from the map key on parse
	Messages []LocalizedString     `json:"messages,omitempty" yaml:"messages,omitempty"`
	Choices  []Choice              `json:"choices,omitempty" yaml:"choices,omitempty"`
	NextNode string                `json:"next_node,omitempty" yaml:"next_node,omitempty"`
	Delay    *DelayInfo            `json:"delay,omitempty" yaml:"delay,omitempty"`
	Ending   string                `json:"ending,omitempty" yaml:"ending,omitempty"`
	OnEnter  *conditionals.Effects `json:"on_enter,omitempty" yaml:"on_enter,omitempty"`
	Branch   []Branch              `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// Choice is a player-selectable option.
type Choice struct {
	Label     LocalizedString               `json:"label" yaml:"label"`
	NextNode  string                        `json:"next_node" yaml:"next_node"`
	Effects   *conditionals.Effects         `json:"effects,omitempty" yaml:"effects,omitempty"`
	Condition *conditionals.BranchCondition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// IsAuto reports whether the choice label is the auto-route placeholder in every language.
func (c Choice) IsAuto() bool {
	if len(c.Label) == 0 {
		return false
	}
	for _, s := range c.Label {
		if strings.TrimSpace(s) != AutoChoiceLabel {
			return false
		}
	}
	return true
}

// Branch is a conditionally selected silent edge. Branches are evaluated in order, first match wins.
type Branch struct {
	Condition conditionals.BranchCondition `json:"condition" yaml:"condition"`
	NextNode  string                       `json:"next_node" yaml:"next_node"`
}

// DelayInfo describes a real-time pause before the story continues.
type DelayInfo struct {
	Seconds int             `json:"seconds" yaml:"seconds"`
	Message LocalizedString `json:"message,omitempty" yaml:"message,omitempty"`
}

// HasWayForward reports whether the node declares any way to continue or end.
func (n *Node) HasWayForward() bool {
	return len(n.Choices) > 0 || n.NextNode != "" || len(n.Branch) > 0 || n.Ending != ""
}

// DelayTarget resolves where a delay node continues: the first choice's target
// when choices are present, otherwise next_node.
func (n *Node) DelayTarget() string {
	if len(n.Choices) > 0 {
		return n.Choices[0].NextNode
	}
	return n.NextNode
}

// Edges yields every outgoing reference with a short description of its origin.
func (n *Node) Edges() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if n.NextNode != "" {
			if !yield("next_node", n.NextNode) {
				return
			}
		}
		for i, c := range n.Choices {
			if !yield(fmt.Sprintf("choices[%d]", i), c.NextNode) {
				return
			}
		}
		for i, b := range n.Branch {
			if !yield(fmt.Sprintf("branch[%d]", i), b.NextNode) {
				return
			}
		}
	}
}

// MessageTexts yields the node's messages in declared order, resolved for lang.
// Each call starts a fresh pass over the messages.
func (n *Node) MessageTexts(lang string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, m := range n.Messages {
			if !yield(m.Text(lang)) {
				return
			}
		}
	}
}

// Node looks up a node by id.
func (s *Story) Node(id string) (*Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok && n != nil
}

// StatDefs returns the declared stat definitions, or the built-in defaults
// when the story declares none.
func (s *Story) StatDefs() map[string]state.StatDef {
	if len(s.Metadata.Stats) == 0 {
		return state.DefaultStatDefs()
	}
	return s.Metadata.Stats
}

// Ending returns the localized presentation of an ending key. A key missing
// from the glossary renders the key itself as the title.
func (s *Story) Ending(key, lang string) (title, description string, ok bool) {
	info, found := s.Endings[key]
	if !found {
		return key, "", false
	}
	title = info.Title.Text(lang)
	if title == "" {
		title = key
	}
	return title, info.Description.Text(lang), true
}

// Format identifies a story document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported story file extension: %s", path)
	}
}

// Parse decodes a story document. Node ids are filled from their map keys;
// an explicit id that disagrees with its key is left in place for Validate to report.
func Parse(data []byte, format Format) (*Story, error) {
	return decode(data, format, false)
}

// ParseStrict is Parse but rejects fields the story schema does not define.
func ParseStrict(data []byte, format Format) (*Story, error) {
	return decode(data, format, true)
}

func decode(data []byte, format Format, strict bool) (*Story, error) {
	var s Story
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to parse story JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse story YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown story format %q", format)
	}

	for id, n := range s.Nodes {
		if n == nil {
			continue
		}
		if n.ID == "" {
			n.ID = id
		}
	}
	return &s, nil
}
