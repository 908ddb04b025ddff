package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/jwebster45206/story-graph/pkg/story"
)

// EmbeddedSource names the built-in story in logs and cache keys.
const EmbeddedSource = "embedded"

// StoryLoader loads the story graph, preferring an override file on disk and
// falling back to the built-in default. Validated stories are cached for the
// life of the process; they are never mutated after loading.
type StoryLoader struct {
	mu       sync.Mutex
	cache    map[string]*story.Story
	embedded []byte
	logger   *slog.Logger
}

// NewStoryLoader creates a loader with embedded as the default JSON document.
func NewStoryLoader(embedded []byte, logger *slog.Logger) *StoryLoader {
	return &StoryLoader{
		cache:    make(map[string]*story.Story),
		embedded: embedded,
		logger:   logger,
	}
}

// Load returns the validated story and where it came from. An empty or
// missing overridePath selects the embedded story. Validation failures are
// returned as story.ValidationErrors listing every violation.
func (l *StoryLoader) Load(overridePath string) (*story.Story, string, error) {
	source := EmbeddedSource
	if overridePath != "" {
		if _, err := os.Stat(overridePath); err == nil {
			source = overridePath
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to stat story file %s: %w", overridePath, err)
		} else {
			l.logger.Debug("Story override not found, using embedded story", "path", overridePath)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.cache[source]; ok {
		return s, source, nil
	}

	s, err := l.read(source)
	if err != nil {
		return nil, source, err
	}
	if errs := story.Validate(s, s.Metadata.StartNode); len(errs) > 0 {
		return nil, source, errs
	}

	l.cache[source] = s
	l.logger.Info("Story loaded", "source", source, "nodes", len(s.Nodes))
	return s, source, nil
}

func (l *StoryLoader) read(source string) (*story.Story, error) {
	if source == EmbeddedSource {
		if len(l.embedded) == 0 {
			return nil, errors.New("no embedded story available")
		}
		return story.Parse(l.embedded, story.FormatJSON)
	}

	format, err := story.FormatFromPath(source)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file %s: %w", source, err)
	}
	return story.Parse(data, format)
}
