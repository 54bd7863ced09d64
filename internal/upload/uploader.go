// Package upload pushes local images to the listing site's picture service
// with the browser's session, skipping the site's own upload widget.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/steps"
)

const (
	// DefaultTokenURL answers an authenticated GET with the session token header.
	DefaultTokenURL    = "https://www.ebay.com/lstng/gql?dummy=1"
	sessionTokenHeader = "x-ebay-c-csrf-token"
)

type Uploader struct {
	Client   *http.Client
	Finder   CredentialFinder
	TokenURL string
	Events   *observability.Logger
}

func New(events *observability.Logger) *Uploader {
	return &Uploader{
		Client:   http.DefaultClient,
		Finder:   PageScanFinder{},
		TokenURL: DefaultTokenURL,
		Events:   events,
	}
}

// Upload sends every path in req to the picture service, one request each.
func (u *Uploader) Upload(ctx context.Context, page steps.Page, req steps.UploadRequest, logf steps.LogFunc) error {
	creds, err := u.Finder.FindUploadCredentials(ctx, page)
	if err != nil {
		return err
	}
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	cookieHeader := joinCookies(cookies)

	token, err := u.sessionToken(ctx, cookieHeader)
	if err != nil {
		return err
	}
	target := creds.Endpoint + querySep(creds.Endpoint) + "srt=" + url.QueryEscape(token)

	for _, path := range req.Paths {
		body, err := u.send(ctx, target, cookieHeader, creds.CSRFToken, req.ItemID, path)
		if err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		if logf != nil {
			logf(fmt.Sprintf("[puppetry] Uploaded %s: %s", path, body))
		}
	}
	return nil
}

func (u *Uploader) sessionToken(ctx context.Context, cookieHeader string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.TokenURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cookie", cookieHeader)
	resp, err := u.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch session token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get(sessionTokenHeader)
	if token == "" {
		return "", fmt.Errorf("%w: no %s header", ErrCredentialsNotFound, sessionTokenHeader)
	}
	return token, nil
}

// send streams one multipart request and returns the compacted JSON reply.
func (u *Uploader) send(ctx context.Context, target, cookieHeader, csrf, itemID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, itemID, filepath.Base(path), f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Cookie", cookieHeader)
	req.Header.Set("x-csrf-token", csrf)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	u.Events.LogUpload("", path, resp.StatusCode)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("picture service returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var reply any
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	compact, _ := json.Marshal(reply)
	return string(compact), nil
}

func writeForm(mw *multipart.Writer, itemID, name string, r io.Reader) error {
	if err := mw.WriteField("item_id", itemID); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("picture", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

func (u *Uploader) client() *http.Client {
	if u.Client != nil {
		return u.Client
	}
	return http.DefaultClient
}

func joinCookies(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func querySep(endpoint string) string {
	if strings.Contains(endpoint, "?") {
		return "&"
	}
	return "?"
}
