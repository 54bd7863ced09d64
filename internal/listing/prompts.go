package listing

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const defaultTitlePrompt = `You write eBay listing titles.
Look at the product image and reply with a single title of at most 80 characters.
Lead with the brand and product type, then the most searchable details (size, color, material).
Reply with the title only: no quotes, no emojis, no trailing punctuation.`

const defaultPricePrompt = `You price items for eBay.
Given a listing title, suggest a competitive Buy It Now price in US dollars based on typical sold listings.
Reply with the price in the form $12.34 followed by at most one short sentence.`

// PromptManager loads the system prompts for the listing assistant. Files in
// Directory override the built-in prompts.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

func (pm *PromptManager) GetTitlePrompt() string {
	return pm.load("title.md", defaultTitlePrompt)
}

func (pm *PromptManager) GetPricePrompt() string {
	return pm.load("price.md", defaultPricePrompt)
}

// PriceRequest renders the user message for a price suggestion.
func (pm *PromptManager) PriceRequest(title string) string {
	return fmt.Sprintf("Listing title: %s", title)
}

func (pm *PromptManager) load(name, fallback string) string {
	if pm == nil || pm.Directory == "" {
		return fallback
	}
	path := filepath.Join(pm.Directory, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
		}
		return fallback
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return fallback
}
