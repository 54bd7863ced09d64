package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
)

var (
	// ErrNoCredential is returned by a ListingAssistant that has no API key.
	// Listing steps treat it as a soft skip.
	ErrNoCredential = errors.New("completion API credential not configured")

	// ErrStepDenied wraps policy rejections.
	ErrStepDenied = errors.New("step denied by policy")
)

// Page is the browser surface that steps drive. Implementations own all DOM
// interaction; selectors passed in are already resolved.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (1-based) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	ClickText(ctx context.Context, text string) error
	ClickTextCheckbox(ctx context.Context, text string) error
	MouseClick(ctx context.Context, x, y float64) error
	// PressKey takes a canonical key name such as "Enter" or "ArrowLeft".
	PressKey(ctx context.Context, key string) error
	SelectAll(ctx context.Context) error
	// Type sends text as keystrokes; an empty selector targets the focused element.
	Type(ctx context.Context, selector, text string) error
	SetInputFiles(ctx context.Context, selector string, paths []string) error
	SetValue(ctx context.Context, selector, value string) error
	ScrollToBottom(ctx context.Context) error
	Screenshot(ctx context.Context, path string) error
	Cookies(ctx context.Context) ([]*http.Cookie, error)
}

// ListingAssistant generates listing copy through a completion API.
type ListingAssistant interface {
	Title(ctx context.Context, image string) (string, error)
	// Price returns the raw completion text for a suggested price.
	Price(ctx context.Context, title string) (string, error)
}

// UploadRequest describes one ebayUploadImage step.
type UploadRequest struct {
	ItemID string
	Paths  []string
}

// ImageUploader pushes local files to the listing site's image service using
// the session of page.
type ImageUploader interface {
	Upload(ctx context.Context, page Page, req UploadRequest, log LogFunc) error
}

// Policy decides whether an interpolated step may run.
type Policy interface {
	Check(ctx context.Context, kind string, arguments string) error
}

// LogFunc receives one plain log line.
type LogFunc func(line string)

// Env is everything a step can reach during one pass over the list.
type Env struct {
	Page       Page
	Vars       *Vars
	ProductURL string
	Log        LogFunc

	Listing  ListingAssistant
	Uploader ImageUploader

	// Description is the default HTML for setDescription.
	Description   string
	ScreenshotDir string
	RunID         string

	in    *Interpreter
	total int
	step  int
	kind  Kind
}

func (e *Env) logf(format string, args ...any) {
	if e.Log == nil {
		return
	}
	e.Log(fmt.Sprintf(linePrefix+" "+format, args...))
}

func (e *Env) raw(line string) {
	if e.Log != nil {
		e.Log(line)
	}
}

func (e *Env) sleep(ctx context.Context, seconds float64) error {
	return e.in.sleep(ctx, seconds)
}

// jumped records a jump on the structured logger only; the run log stays
// silent so the target step's output follows directly.
func (e *Env) jumped(cursor int, reason string) {
	if e.in != nil {
		e.in.Events.LogJump(e.RunID, e.step, string(e.kind), cursor+1, reason)
	}
}

// jumpTarget converts a 1-based skipTo into a 0-based cursor when it names a
// step of the current list.
func (e *Env) jumpTarget(n Number) (int, bool) {
	if !n.Set || n.Value != math.Trunc(n.Value) {
		return 0, false
	}
	t := int(n.Value)
	if t < 1 || t > e.total {
		return 0, false
	}
	return t - 1, true
}

type flowOp int

const (
	flowNext flowOp = iota
	flowJump
	flowEnd
)

// Flow tells the interpreter where to go after a step.
type Flow struct {
	op     flowOp
	cursor int
}

var (
	Next = Flow{op: flowNext}
	Stop = Flow{op: flowEnd}
)

// JumpTo moves the cursor to the 0-based index cursor.
func JumpTo(cursor int) Flow {
	return Flow{op: flowJump, cursor: cursor}
}
