package steps

import (
	"context"
	"fmt"
)

type LoadURL struct {
	URL Text `json:"url"`
}

func (a *LoadURL) Execute(ctx context.Context, env *Env) (Flow, error) {
	return Next, env.navigate(ctx, a.URL.String())
}

// LoadProductURL navigates to the product URL supplied with the run.
type LoadProductURL struct{}

func (a *LoadProductURL) Execute(ctx context.Context, env *Env) (Flow, error) {
	if env.ProductURL == "" {
		env.logf("product URL not set")
		return Next, nil
	}
	return Next, env.navigate(ctx, env.ProductURL)
}

func (e *Env) navigate(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("navigate: empty url")
	}
	timeout := e.in.NavigationTimeout
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := e.Page.Navigate(nctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

type ScrollBottom struct{}

func (a *ScrollBottom) Execute(ctx context.Context, env *Env) (Flow, error) {
	if err := env.Page.ScrollToBottom(ctx); err != nil {
		return Next, fmt.Errorf("scroll: %w", err)
	}
	return Next, env.in.pause(ctx, env.in.ScrollPause)
}

// CheckPageURL jumps to SkipTo when the current URL differs from URL.
// A mismatch without a usable SkipTo is not an error.
type CheckPageURL struct {
	URL    Text   `json:"url"`
	SkipTo Number `json:"skipTo"`
}

func (a *CheckPageURL) Execute(ctx context.Context, env *Env) (Flow, error) {
	current, err := env.Page.URL(ctx)
	if err != nil {
		return Next, fmt.Errorf("read page url: %w", err)
	}
	if current == a.URL.String() {
		return Next, nil
	}
	if t, ok := env.jumpTarget(a.SkipTo); ok {
		env.jumped(t, fmt.Sprintf("page url %s does not match %s", current, a.URL))
		return JumpTo(t), nil
	}
	return Next, nil
}
