package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

type Wait struct {
	Seconds Number `json:"seconds"`
}

func (a *Wait) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, env.sleep(ctx, a.Seconds.Float(1))
}

// Log writes Message to the run log as is.
type Log struct {
	Message Text `json:"message"`
}

func (a *Log) Execute(ctx context.Context, env *Env) (Flow, error) {
	env.raw(a.Message.String())
	return Next, nil
}

type SectionTitle struct {
	Title Text `json:"title"`
}

func (a *SectionTitle) Execute(ctx context.Context, env *Env) (Flow, error) {
	env.logf("Section: %s", a.Title)
	return Next, nil
}

// Screenshot captures the full page. Relative paths land in the configured
// screenshot directory.
type Screenshot struct {
	Path Text `json:"path"`
}

func (a *Screenshot) Execute(ctx context.Context, env *Env) (Flow, error) {
	path := a.Path.String()
	if path == "" {
		path = fmt.Sprintf("screenshot-%d.png", time.Now().UnixMilli())
	}
	if !filepath.IsAbs(path) && env.ScreenshotDir != "" {
		path = filepath.Join(env.ScreenshotDir, path)
	}
	if err := env.Page.Screenshot(ctx, path); err != nil {
		return Next, fmt.Errorf("screenshot %s: %w", path, err)
	}
	env.logf("Saved screenshot %s", path)
	return Next, nil
}

// End stops the current pass over the list.
type End struct{}

func (a *End) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Stop, nil
}
