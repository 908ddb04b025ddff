package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/story-graph/data"
	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/story"
)

type StoryValidator struct {
	errors []string
}

func (v *StoryValidator) validateEmbedded() error {
	fmt.Println("Validating embedded story...")
	return v.validateData(data.StoryJSON, story.FormatJSON, "embedded story")
}

func (v *StoryValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	format, err := story.FormatFromPath(filename)
	if err != nil {
		return err
	}

	baseName := filepath.Base(filename)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidStoryFilename(nameWithoutExt) {
		return fmt.Errorf("story filename '%s' must be lowercase snake_case (e.g., my_story.json, not my-story.json or MyStory.json)", baseName)
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validateData(raw, format, filename)
}

func (v *StoryValidator) validateData(raw []byte, format story.Format, name string) error {
	v.errors = nil

	s, err := story.ParseStrict(raw, format)
	if err != nil {
		return fmt.Errorf("%s failed strict unmarshaling: %w", name, err)
	}

	v.validateStory(s)
	for _, e := range story.Validate(s, s.Metadata.StartNode) {
		v.addError(e.Error())
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("%d validation error(s) in %s:\n%s", len(v.errors), name, strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateStory checks naming conventions; graph structure is left to story.Validate.
func (v *StoryValidator) validateStory(s *story.Story) {
	if s.Metadata.Title.IsEmpty() {
		v.addError("metadata.title is empty")
	}
	for _, name := range sortedKeys(s.Metadata.Stats) {
		v.validateIDFormat("stat name", name)
	}
	for flag := range s.Flags {
		v.validateIDFormat("flag", flag)
	}
	for key := range s.Endings {
		v.validateIDFormat("ending key", key)
	}

	for _, id := range sortedKeys(s.Nodes) {
		v.validateIDFormat("node ID", id)
		n := s.Nodes[id]
		if n == nil {
			continue
		}
		for i, c := range n.Choices {
			if c.Label.IsEmpty() {
				v.addError(fmt.Sprintf("node %s choice %d has an empty label", id, i))
			}
			if c.Condition != nil && c.Condition.IsEmpty() {
				v.addError(fmt.Sprintf("node %s choice %d has an empty condition", id, i))
			}
			v.validateEffects(c.Effects, fmt.Sprintf("node %s choice %d", id, i))
		}
		v.validateEffects(n.OnEnter, fmt.Sprintf("node %s on_enter", id))
		for i, b := range n.Branch {
			if b.Condition.IsEmpty() {
				v.addError(fmt.Sprintf("node %s branch %d has an empty condition; use \"default\": true for a fallback", id, i))
			}
		}
	}
}

func (v *StoryValidator) validateEffects(e *conditionals.Effects, context string) {
	if e == nil {
		return
	}
	for _, flag := range slices.Concat(e.SetFlags, e.UnsetFlags) {
		if !isValidVariableName(flag) {
			v.addError(fmt.Sprintf("%s has invalid flag name '%s' - should be lowercase snake_case", context, flag))
		}
	}
	if e.AdvanceDay < 0 {
		v.addError(fmt.Sprintf("%s has negative advance_day %d", context, e.AdvanceDay))
	}
}

func (v *StoryValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validVarRegex      = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidVariableName(name string) bool {
	return validVarRegex.MatchString(name)
}

func isValidStoryFilename(name string) bool {
	// Allow 'x.' prefix for experimental stories
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
