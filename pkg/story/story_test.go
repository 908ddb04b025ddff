package story

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "metadata": {
    "title": {"en": "Signal", "fr": "Signal"},
    "start_node": "intro",
    "stats": {"trust": {"default": 3, "min": 0, "max": 10}}
  },
  "flags": {"has_map": "The player found the map"},
  "endings": {"rescued": {"title": "Rescued", "description": {"en": "You made it.", "fr": "Tu as réussi."}}},
  "nodes": {
    "intro": {
      "messages": [{"en": "Hello?", "fr": "Allô ?"}, "Plain text"],
      "choices": [
        {"label": "Who is this?", "next_node": "end", "effects": {"trust": 1, "set_flags": ["asked"]}},
        {"label": {"en": "...", "fr": "..."}, "next_node": "end", "condition": {"min_trust": 5}}
      ]
    },
    "end": {"id": "end", "ending": "rescued"}
  }
}`

const sampleYAML = `
metadata:
  title: Signal
  start_node: intro
endings:
  rescued:
    title: Rescued
    description:
      en: You made it.
      fr: Tu as réussi.
nodes:
  intro:
    messages:
      - Hello?
    next_node: wait
  wait:
    delay:
      seconds: 120
      message: Elara is busy
    next_node: end
  end:
    ending: rescued
`

func TestParse_JSON(t *testing.T) {
	s, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "intro", s.Metadata.StartNode)
	intro, ok := s.Node("intro")
	require.True(t, ok)
	assert.Equal(t, "intro", intro.ID, "id filled from map key")
	assert.Equal(t, []string{"Allô ?", "Plain text"}, slices.Collect(intro.MessageTexts("fr")))
	require.Len(t, intro.Choices, 2)
	assert.Equal(t, 1, intro.Choices[0].Effects.Trust)
	assert.False(t, intro.Choices[0].IsAuto())
	assert.True(t, intro.Choices[1].IsAuto())
	require.NotNil(t, intro.Choices[1].Condition)
	assert.Equal(t, 5, *intro.Choices[1].Condition.MinTrust)

	title, desc, ok := s.Ending("rescued", "fr")
	assert.True(t, ok)
	assert.Equal(t, "Rescued", title)
	assert.Equal(t, "Tu as réussi.", desc)

	assert.Empty(t, Validate(s, s.Metadata.StartNode))
}

func TestParse_YAML(t *testing.T) {
	s, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	wait, ok := s.Node("wait")
	require.True(t, ok)
	require.NotNil(t, wait.Delay)
	assert.Equal(t, 120, wait.Delay.Seconds)
	assert.Equal(t, "Elara is busy", wait.Delay.Message.Text("fr"))
	assert.Equal(t, "end", wait.DelayTarget())
	assert.Equal(t, 10, s.StatDefs()["health"].Default, "built-in stat defaults apply")

	assert.Empty(t, Validate(s, s.Metadata.StartNode))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"nodes": [}`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte(`{}`), Format("toml"))
	assert.Error(t, err)
}

func TestParseStrict_UnknownFields(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"json typo", `{"nodes": {"a": {"ending": "x", "next_nod": "b"}}}`, FormatJSON},
		{"yaml typo", "nodes:\n  a:\n    ending: x\n    mesages: [hi]\n", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrict([]byte(tt.data), tt.format)
			assert.Error(t, err)

			s, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err, "lenient parse ignores unknown fields")
			assert.Equal(t, "a", s.Nodes["a"].ID)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"story.json", FormatJSON, false},
		{"/tmp/Story.YAML", FormatYAML, false},
		{"story.yml", FormatYAML, false},
		{"story.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStory_EndingFallback(t *testing.T) {
	s := &Story{}
	title, desc, ok := s.Ending("mystery", "en")
	assert.False(t, ok)
	assert.Equal(t, "mystery", title)
	assert.Empty(t, desc)
}

func TestDelayTarget_PrefersFirstChoice(t *testing.T) {
	n := &Node{NextNode: "b", Choices: []Choice{{NextNode: "c"}, {NextNode: "d"}}}
	assert.Equal(t, "c", n.DelayTarget())
}
