package story

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLocalizedString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    LocalizedString
		wantErr bool
	}{
		{
			name:  "plain string",
			input: `"Hello"`,
			want:  LocalizedString{"en": "Hello"},
		},
		{
			name:  "object",
			input: `{"en": "Hello", "fr": "Bonjour"}`,
			want:  LocalizedString{"en": "Hello", "fr": "Bonjour"},
		},
		{
			name:    "number",
			input:   `42`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ls LocalizedString
			err := json.Unmarshal([]byte(tt.input), &ls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ls)
		})
	}
}

func TestLocalizedString_UnmarshalYAML(t *testing.T) {
	var doc struct {
		A LocalizedString `yaml:"a"`
		B LocalizedString `yaml:"b"`
	}
	err := yaml.Unmarshal([]byte("a: Hello\nb:\n  en: Hi\n  fr: Salut\n"), &doc)
	require.NoError(t, err)
	assert.Equal(t, LocalizedString{"en": "Hello"}, doc.A)
	assert.Equal(t, "Salut", doc.B.Text("fr"))
}

func TestLocalizedString_Text(t *testing.T) {
	ls := LocalizedString{"en": "Hello", "fr": "Bonjour"}

	tests := []struct {
		lang string
		want string
	}{
		{"en", "Hello"},
		{"fr", "Bonjour"},
		{"fr-CA", "Bonjour"},
		{"de", "Hello"},
		{"", "Hello"},
		{"not a tag!", "Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.want, ls.Text(tt.lang))
		})
	}

	frOnly := LocalizedString{"fr": "Seulement"}
	assert.Equal(t, "Seulement", frOnly.Text("en"), "falls back to the first declared language")
	assert.Equal(t, "", LocalizedString(nil).Text("en"))
}
