package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/story-graph/internal/storage"
	"github.com/jwebster45206/story-graph/pkg/engine"
	pkgstorage "github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/wait"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

const saveSlot = "integration"

// epoch is where every run's simulated clock starts
var epoch = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// Runner plays scripted suites against the interpreter with a simulated clock
type Runner struct {
	Loader            *storage.StoryLoader
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	StoryOverride     string // If set, overrides the story for all test cases
	SlogLogger        *slog.Logger
}

// NewRunner creates a new test runner
func NewRunner(loader *storage.StoryLoader) *Runner {
	return &Runner{
		Loader:            loader,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
		SlogLogger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LoadTestSuite loads a test suite from a YAML (or JSON) file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// play is the state of one suite run
type play struct {
	story *story.Story
	store *pkgstorage.MockStorage
	sched *wait.Scheduler
	it    *engine.Interpreter
	now   time.Time
	lang  string
}

func (p *play) clock() time.Time {
	return p.now
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	path := suite.Story
	if r.StoryOverride != "" {
		path = r.StoryOverride
	}
	st, _, err := r.Loader.Load(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to load story: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	p := &play{story: st, store: pkgstorage.NewMockStorage(), now: epoch, lang: suite.Language}
	p.sched = &wait.Scheduler{DebugDelay: wait.DefaultDebugDelay, Now: p.clock}
	p.it = r.interpreter(p)

	if err := p.it.NewGame(ctx, p.lang); err != nil {
		result.Error = fmt.Errorf("failed to start game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	if _, err := settle(ctx, p.it); err != nil {
		result.Error = fmt.Errorf("failed to play opening: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = p.it.State().ID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, p, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) interpreter(p *play) *engine.Interpreter {
	return engine.New(p.story, p.store, saveSlot, engine.Options{
		Logger:    r.SlogLogger,
		Scheduler: p.sched,
	})
}

// runStep performs one action, lets the story settle, then checks expectations
func (r *Runner) runStep(ctx context.Context, p *play, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	err := r.act(ctx, p, step)
	if err == nil {
		result.Messages, err = settle(ctx, p.it)
	}
	if err == nil {
		err = check(p.it, step.Expectations, result.Messages)
	}

	result.IsReset = step.Action == ActionReset
	result.Error = err
	result.Success = err == nil
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) act(ctx context.Context, p *play, step TestStep) error {
	switch step.Action {
	case "":
		if step.Choose < 1 {
			return fmt.Errorf("step needs a choice (1-based) or an action")
		}
		_, err := p.it.SubmitChoice(ctx, step.Choose-1)
		return err

	case ActionWait:
		ps := p.it.State()
		if ps == nil || ps.WaitingUntil == nil {
			return engine.ErrNotWaiting
		}
		p.now = ps.WaitingUntil.Add(time.Second)
		return nil

	case ActionRestart:
		p.it = r.interpreter(p)
		resumed, err := p.it.Resume(ctx)
		if err != nil {
			return err
		}
		if !resumed {
			return errors.New("no save to resume")
		}
		return nil

	case ActionReset:
		if err := p.it.Reset(ctx); err != nil {
			return err
		}
		return p.it.NewGame(ctx, p.lang)

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}
