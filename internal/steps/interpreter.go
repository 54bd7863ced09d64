package steps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rahul/puppetry/internal/observability"
)

const linePrefix = "[puppetry]"

// Default pacing used by the input handlers.
const (
	DefaultNavigationTimeout = 120 * time.Second
	DefaultTypeDelay         = 500 * time.Millisecond
	DefaultTabPause          = 100 * time.Millisecond
	DefaultScrollPause       = time.Second
)

// Outcome reports how a pass over a step list finished.
type Outcome struct {
	// Executed counts dispatched steps, including skipped unknown kinds.
	Executed int
	// Ended is true when an end step stopped the pass.
	Ended bool
	// Trace holds the 1-based numbers of the steps visited, in order.
	Trace []int
}

// ErrStepLimit is returned when MaxSteps is exceeded.
var ErrStepLimit = errors.New("step limit exceeded")

// Interpreter walks a step list against an Env.
type Interpreter struct {
	Policy Policy
	Events *observability.Logger

	NavigationTimeout time.Duration
	TypeDelay         time.Duration
	TabPause          time.Duration
	ScrollPause       time.Duration

	// MaxSteps bounds the number of dispatches per pass; 0 means unlimited.
	MaxSteps int

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewInterpreter() *Interpreter {
	return &Interpreter{
		NavigationTimeout: DefaultNavigationTimeout,
		TypeDelay:         DefaultTypeDelay,
		TabPause:          DefaultTabPause,
		ScrollPause:       DefaultScrollPause,
		Sleep:             sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (in *Interpreter) sleep(ctx context.Context, seconds float64) error {
	return in.pause(ctx, time.Duration(seconds*float64(time.Second)))
}

func (in *Interpreter) pause(ctx context.Context, d time.Duration) error {
	if in.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return in.Sleep(ctx, d)
}

// Execute runs list once from the first step. The caller's steps are never
// modified; each step is interpolated against env.Vars right before it runs.
func (in *Interpreter) Execute(ctx context.Context, list []Step, env *Env) (Outcome, error) {
	var out Outcome
	if env.Vars == nil {
		env.Vars = NewVars()
	}
	env.in = in
	env.total = len(list)

	cursor := 0
	for cursor < len(list) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if in.MaxSteps > 0 && out.Executed >= in.MaxSteps {
			return out, fmt.Errorf("%w after %d steps", ErrStepLimit, out.Executed)
		}

		n := cursor + 1
		step := env.Vars.Interpolate(list[cursor])
		kind := step.Kind()
		env.step, env.kind = n, kind
		args := step.String()
		env.raw(fmt.Sprintf("%s Executing step %d/%d: %s", linePrefix, n, len(list), args))
		out.Executed++
		out.Trace = append(out.Trace, n)

		if !Known(kind) {
			in.Events.LogSkip(env.RunID, n, string(kind))
			cursor++
			continue
		}
		in.Events.LogStep(env.RunID, n, string(kind), args)

		if in.Policy != nil {
			if err := in.Policy.Check(ctx, string(kind), args); err != nil {
				in.Events.LogPolicy(env.RunID, n, string(kind), err)
				return out, fmt.Errorf("step %d (%s): %w", n, kind, err)
			}
		}

		action, err := Decode(step)
		if err != nil {
			return out, fmt.Errorf("step %d (%s): %w", n, kind, err)
		}
		flow, err := action.Execute(ctx, env)
		if err != nil {
			log.Printf("step %d (%s) failed: %v", n, kind, err)
			return out, fmt.Errorf("step %d (%s): %w", n, kind, err)
		}

		switch flow.op {
		case flowEnd:
			out.Ended = true
			return out, nil
		case flowJump:
			cursor = flow.cursor
		default:
			cursor++
		}
	}
	return out, nil
}
