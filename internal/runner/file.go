package runner

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseRequest reads a step file in YAML or JSON. The document is either a
// bare step list or a request object with a steps key.
func ParseRequest(data []byte) (Request, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Request{}, fmt.Errorf("parse step file: %w", err)
	}
	if doc == nil {
		return Request{}, errors.New("step file is empty")
	}
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"steps": list}
	}
	if _, ok := doc.(map[string]any); !ok {
		return Request{}, fmt.Errorf("step file must hold a list or an object, got %T", doc)
	}

	// Steps are JSON-shaped maps downstream; normalise through JSON.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Request{}, fmt.Errorf("normalise step file: %w", err)
	}
	var aux struct {
		Request
		PrintifyProductURL string `json:"printifyProductURL"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return Request{}, fmt.Errorf("decode step file: %w", err)
	}
	req := aux.Request
	if req.ProductURL == "" {
		req.ProductURL = aux.PrintifyProductURL
	}
	if len(req.Steps) == 0 {
		return Request{}, errors.New("step file has no steps")
	}
	return req, nil
}
