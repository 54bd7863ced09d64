// Package runner owns the browser between runs and drives the interpreter
// over a run's loops.
package runner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/steps"
	"github.com/rahul/puppetry/internal/store"
)

// Browser is the lifecycle of the persistent page.
type Browser interface {
	Alive() bool
	Acquire(ctx context.Context) (steps.Page, error)
	Close() error
}

// History records runs and their log lines. *store.HistoryStore satisfies it.
type History interface {
	StartRun(id, preset string, loops int) error
	AppendLog(runID string, seq int, line string) error
	FinishRun(id string, runErr error) error
}

// Summary describes a finished run.
type Summary struct {
	RunID  string
	Preset string
	Loops  int
	Err    error
}

// Notifier hears about every finished run.
type Notifier interface {
	Notify(ctx context.Context, s Summary)
}

// Request is one invocation: a step list and how to run it.
type Request struct {
	Steps        []steps.Step      `json:"steps"`
	Loops        steps.Number      `json:"loops"`
	CloseBrowser bool              `json:"closeBrowser"`
	ProductURL   string            `json:"productURL"`
	Variables    map[string]string `json:"variables"`

	// Preset names the stored preset the request came from, if any.
	Preset string `json:"-"`
	// Defaults seed the variable store before Variables.
	Defaults map[string]string `json:"-"`
}

// FromPreset builds a request from a stored preset. Non-zero arguments
// override the preset's settings.
func FromPreset(name string, p store.Preset, productURL string, loops int, vars map[string]string) Request {
	if productURL == "" {
		productURL = p.ProductURL
	}
	return Request{
		Steps:        p.Steps,
		Loops:        steps.NumberOf(float64(p.Loops(loops))),
		CloseBrowser: p.CloseBrowser,
		ProductURL:   productURL,
		Variables:    vars,
		Preset:       name,
		Defaults:     p.Variables,
	}
}

// Runner executes requests one at a time against a shared browser.
type Runner struct {
	mu sync.Mutex

	Browser     Browser
	Interpreter *steps.Interpreter
	Listing     steps.ListingAssistant
	Uploader    steps.ImageUploader
	History     History
	Notifier    Notifier
	Events      *observability.Logger

	Description   string
	ScreenshotDir string
	// ResetVariablesPerLoop restores the seeded variables before every loop
	// after the first, dropping values written by earlier loops.
	ResetVariablesPerLoop bool

	// Reap kills leftover browser processes before a fresh launch.
	Reap  func(ctx context.Context)
	NewID func() string
}

func New(browser Browser, interp *steps.Interpreter) *Runner {
	if interp == nil {
		interp = steps.NewInterpreter()
	}
	return &Runner{
		Browser:     browser,
		Interpreter: interp,
		NewID:       uuid.NewString,
	}
}

// Run executes req, streaming log lines to logf. It holds the runner for the
// whole invocation, so concurrent callers wait their turn.
func (r *Runner) Run(ctx context.Context, req Request, logf steps.LogFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	loops := req.Loops.Int(1)
	if loops < 1 {
		loops = 1
	}
	label := req.Preset
	if label == "" {
		label = "ad-hoc run"
	}

	observability.SetStatus(observability.RoleRunning, label)
	defer observability.SetStatus(observability.RoleIdle, "")
	r.Events.LogRun(id, "started", map[string]any{"preset": req.Preset, "loops": loops, "steps": len(req.Steps)})
	if r.History != nil {
		if err := r.History.StartRun(id, req.Preset, loops); err != nil {
			log.Printf("Error recording run %s: %v", id, err)
		}
	}

	seq := 0
	emit := func(line string) {
		seq++
		if r.History != nil {
			if err := r.History.AppendLog(id, seq, line); err != nil {
				log.Printf("Error recording log line for run %s: %v", id, err)
			}
		}
		if logf != nil {
			logf(line)
		}
	}

	err := r.run(ctx, id, req, loops, emit)

	state := "done"
	if err != nil {
		state = "failed"
		r.Events.LogRun(id, state, map[string]any{"error": err.Error()})
	} else {
		r.Events.LogRun(id, state, nil)
	}
	if r.History != nil {
		if herr := r.History.FinishRun(id, err); herr != nil {
			log.Printf("Error finishing run %s: %v", id, herr)
		}
	}
	if r.Notifier != nil {
		r.Notifier.Notify(ctx, Summary{RunID: id, Preset: req.Preset, Loops: loops, Err: err})
	}
	return err
}

func (r *Runner) run(ctx context.Context, id string, req Request, loops int, emit steps.LogFunc) error {
	emit(fmt.Sprintf("[puppetry] closeBrowser: %v", req.CloseBrowser))
	emit(fmt.Sprintf("[puppetry] loops: %d", loops))
	if req.ProductURL != "" {
		emit(fmt.Sprintf("[puppetry] productURL: %s", req.ProductURL))
	}

	if !r.Browser.Alive() && r.Reap != nil {
		r.Reap(ctx)
	}

	seed := steps.NewVars(req.Defaults, req.Variables)
	vars := seed.Clone()
	for loop := 1; loop <= loops; loop++ {
		if loop > 1 && r.ResetVariablesPerLoop {
			vars = seed.Clone()
		}
		if loops > 1 {
			emit(fmt.Sprintf("[puppetry] Loop %d/%d", loop, loops))
		}

		page, err := r.Browser.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire browser: %w", err)
		}
		env := &steps.Env{
			Page:          page,
			Vars:          vars,
			ProductURL:    req.ProductURL,
			Log:           emit,
			Listing:       r.Listing,
			Uploader:      r.Uploader,
			Description:   r.Description,
			ScreenshotDir: r.ScreenshotDir,
			RunID:         id,
		}
		if _, err := r.Interpreter.Execute(ctx, req.Steps, env); err != nil {
			return err
		}

		if req.CloseBrowser {
			if err := r.Browser.Close(); err != nil {
				emit(fmt.Sprintf("[puppetry] Error closing browser: %v", err))
			}
		}
	}
	return nil
}

// Reset closes the browser right away. An active run fails on its next page
// action; this is how a stuck run is unblocked.
func (r *Runner) Reset() error {
	return r.Browser.Close()
}

func (r *Runner) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}
