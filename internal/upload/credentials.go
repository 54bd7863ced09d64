package upload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rahul/puppetry/internal/steps"
)

// ErrCredentialsNotFound means the page carries no picture service endpoint
// or CSRF token, usually because it is not a listing form.
var ErrCredentialsNotFound = errors.New("upload credentials not found on page")

type Credentials struct {
	Endpoint  string
	CSRFToken string
}

// CredentialFinder locates the picture service endpoint and CSRF token for
// the page's session.
type CredentialFinder interface {
	FindUploadCredentials(ctx context.Context, page steps.Page) (Credentials, error)
}

// Evaluator runs a script in a page and decodes the result.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, res any) error
}

// csrfKeyMarker identifies the token map entry for the picture service.
const csrfKeyMarker = "EpsBasic"

// scanJS looks for the listing form's bootstrap state in the known globals
// first, then in every other window property.
const scanJS = `(() => {
  const extract = obj => {
    if (!obj || typeof obj !== 'object') return {epsData: null, csrfMap: null};
    return {
      epsData: (obj.model && obj.model.epsData) || null,
      csrfMap: obj.csrf || obj.csrfTokenMap || null,
    };
  };
  const tried = new Set();
  let result = {epsData: null, csrfMap: null};
  const tryObj = obj => {
    if (!obj || tried.has(obj)) return;
    tried.add(obj);
    const found = extract(obj);
    result = {
      epsData: result.epsData || found.epsData,
      csrfMap: result.csrfMap || found.csrfMap,
    };
  };
  tryObj(window.$fehelix_C);
  tryObj(window.__FEHelix_C);
  for (const key of Object.keys(window)) {
    if (result.epsData && result.csrfMap) break;
    try { tryObj(window[key]); } catch (e) {}
  }
  return {
    endpoint: (result.epsData && result.epsData.endpoint) || '',
    csrfMap: result.csrfMap || {},
  };
})()`

type scanResult struct {
	Endpoint string         `json:"endpoint"`
	CSRFMap  map[string]any `json:"csrfMap"`
}

// PageScanFinder reads credentials from page globals. The page must also
// implement Evaluator.
type PageScanFinder struct{}

func (PageScanFinder) FindUploadCredentials(ctx context.Context, page steps.Page) (Credentials, error) {
	ev, ok := page.(Evaluator)
	if !ok {
		return Credentials{}, fmt.Errorf("page %T cannot evaluate scripts", page)
	}
	var res scanResult
	if err := ev.Evaluate(ctx, scanJS, &res); err != nil {
		return Credentials{}, fmt.Errorf("scan page globals: %w", err)
	}

	creds := Credentials{Endpoint: strings.TrimSpace(res.Endpoint), CSRFToken: pickToken(res.CSRFMap)}
	if creds.Endpoint == "" || creds.CSRFToken == "" {
		return Credentials{}, ErrCredentialsNotFound
	}
	return creds, nil
}

func pickToken(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.Contains(k, csrfKeyMarker) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
