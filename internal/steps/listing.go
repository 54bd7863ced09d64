package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Variables written by the listing steps.
const (
	VarTitle = "ebayTitle"
	VarPrice = "ebayPrice"
)

// MaxTitleLength is the listing site's title limit.
const MaxTitleLength = 80

var dollarAmount = regexp.MustCompile(`\$\s*(\d+(?:[.,]\d{1,2})?)`)

// EbayListingTitle asks the listing assistant for a title describing an
// image and stores it in ebayTitle.
type EbayListingTitle struct {
	Image    Text `json:"image"`
	ImageVar Text `json:"imageVar"`
}

func (a *EbayListingTitle) Execute(ctx context.Context, env *Env) (Flow, error) {
	image := strings.TrimSpace(a.Image.String())
	if image == "" && a.ImageVar != "" {
		image = strings.TrimSpace(env.Vars.Get(a.ImageVar.String()))
	}
	if image == "" {
		env.logf("listing title skipped: no image given")
		return Next, nil
	}
	if env.Listing == nil {
		env.logf("listing title skipped: completion API key not set")
		return Next, nil
	}

	raw, err := env.Listing.Title(ctx, image)
	if errors.Is(err, ErrNoCredential) {
		env.logf("listing title skipped: completion API key not set")
		return Next, nil
	}
	if err != nil {
		return Next, fmt.Errorf("generate title: %w", err)
	}
	title := CleanTitle(raw)
	env.Vars.Set(VarTitle, title)
	env.logf("Generated title: %s", title)
	return Next, nil
}

// EbayPrice asks the listing assistant for a price for {{ebayTitle}} and
// stores it in ebayPrice.
type EbayPrice struct{}

func (a *EbayPrice) Execute(ctx context.Context, env *Env) (Flow, error) {
	title := strings.TrimSpace(env.Vars.Get(VarTitle))
	if title == "" {
		env.logf("price skipped: %s is empty", VarTitle)
		return Next, nil
	}
	if env.Listing == nil {
		env.logf("price skipped: completion API key not set")
		return Next, nil
	}

	raw, err := env.Listing.Price(ctx, title)
	if errors.Is(err, ErrNoCredential) {
		env.logf("price skipped: completion API key not set")
		return Next, nil
	}
	if err != nil {
		return Next, fmt.Errorf("suggest price: %w", err)
	}
	price := ExtractPrice(raw)
	env.Vars.Set(VarPrice, price)
	env.logf("Suggested price: %s", price)
	return Next, nil
}

// ExtractPrice returns the first dollar amount in s without the sign, or the
// trimmed text when there is none.
func ExtractPrice(s string) string {
	m := dollarAmount.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s)
	}
	return strings.Replace(m[1], ",", ".", 1)
}

// CleanTitle strips quotes and extra whitespace and enforces MaxTitleLength.
func CleanTitle(s string) string {
	s = strings.NewReplacer(`"`, "", "“", "", "”", "").Replace(s)
	s = strings.Trim(strings.TrimSpace(s), "'")
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > MaxTitleLength {
		s = strings.TrimSpace(string(r[:MaxTitleLength]))
	}
	return s
}
