package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/puppetry/internal/selector"
)

const defaultFileInput = `input[type="file"]`

// EbayUploadImage sends local images straight to the listing site's picture
// service using the page's session.
type EbayUploadImage struct {
	Paths  Text `json:"paths"`
	ItemID Text `json:"itemId"`
}

func (a *EbayUploadImage) Execute(ctx context.Context, env *Env) (Flow, error) {
	if env.Uploader == nil {
		return Next, fmt.Errorf("image upload is not configured")
	}
	req := UploadRequest{
		ItemID: a.ItemID.String(),
		Paths:  splitPaths(a.Paths.String()),
	}
	if err := env.Uploader.Upload(ctx, env.Page, req, env.Log); err != nil {
		return Next, fmt.Errorf("upload images: %w", err)
	}
	return Next, nil
}

// UIUploadFile attaches files to a file input, as a user picking them would.
type UIUploadFile struct {
	Paths    Text `json:"paths"`
	PathsVar Text `json:"pathsVar"`
	Selector Text `json:"selector"`
}

func (a *UIUploadFile) Execute(ctx context.Context, env *Env) (Flow, error) {
	raw := a.Paths.String()
	if strings.TrimSpace(raw) == "" && a.PathsVar != "" {
		raw = env.Vars.Get(a.PathsVar.String())
	}
	paths := splitPaths(raw)
	if len(paths) == 0 {
		env.logf("UI upload skipped: no paths given")
		return Next, nil
	}

	sel := defaultFileInput
	if a.Selector != "" {
		sel = selector.Resolve(a.Selector.String())
	}
	if err := env.Page.SetInputFiles(ctx, sel, paths); err != nil {
		return Next, fmt.Errorf("set files on %s: %w", sel, err)
	}
	env.logf("Uploaded via UI: %s", strings.Join(paths, ", "))
	return Next, nil
}
