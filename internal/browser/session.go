// Package browser provides the chromedp-backed page that steps drive and
// the session that owns it between runs.
package browser

import (
	"context"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/rahul/puppetry/internal/steps"
)

type Options struct {
	Headless      bool
	ExecPath      string
	UserDataDir   string
	WindowWidth   int
	WindowHeight  int
	ActionTimeout time.Duration
	NavTimeout    time.Duration
}

// Session owns at most one browser and its page. The page outlives a run
// unless Close is called, so logins and cookies persist between runs.
type Session struct {
	mu            sync.Mutex
	opts          Options
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	page          *Page
}

func NewSession(opts Options) *Session {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = steps.DefaultNavigationTimeout
	}
	return &Session{opts: opts}
}

// Alive reports whether a page is open.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked()
}

func (s *Session) aliveLocked() bool {
	if s.browserCtx == nil {
		return false
	}
	select {
	case <-s.browserCtx.Done():
		return false
	default:
		return true
	}
}

// Acquire returns the open page, launching a browser first when there is
// none or the previous one died.
func (s *Session) Acquire(ctx context.Context) (steps.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aliveLocked() {
		return s.page, nil
	}
	s.cleanup()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if s.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.opts.ExecPath))
	}
	if s.opts.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.opts.UserDataDir))
	}
	if s.opts.WindowWidth > 0 && s.opts.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(s.opts.WindowWidth, s.opts.WindowHeight))
	}

	// The browser must not die with the caller's context; Close ends it.
	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	if err := chromedp.Run(s.browserCtx); err != nil {
		s.cleanup()
		return nil, err
	}
	s.page = &Page{ctx: s.browserCtx, timeout: s.opts.ActionTimeout, navTimeout: s.opts.NavTimeout}
	log.Printf("[browser] launched (headless=%v)", s.opts.Headless)
	return s.page, nil
}

// Close shuts the browser down. The next Acquire starts a new one.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		// Give chrome a chance to exit cleanly before the allocator kills it.
		_ = chromedp.Cancel(s.browserCtx)
	}
	s.cleanup()
	return nil
}

func (s *Session) cleanup() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.browserCtx = nil
	s.allocCtx = nil
	s.browserCancel = nil
	s.allocCancel = nil
	s.page = nil
}

var strayProcessNames = []string{"chromium", "chrome", "chromium-browser"}

// ReapStrayProcesses force kills browser processes left over from earlier
// crashed runs. Failures, including "no process matched", are ignored.
func ReapStrayProcesses(ctx context.Context) {
	for _, name := range strayProcessNames {
		cmd := exec.CommandContext(ctx, "pkill", "-9", "-f", name)
		if err := cmd.Run(); err == nil {
			log.Printf("[browser] killed stray %s processes", name)
		}
	}
}
