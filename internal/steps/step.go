package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value of a step's "type" field.
type Kind string

const (
	KindLoadURL               Kind = "loadURL"
	KindLoadProductURL        Kind = "loadPrintifyProductURL"
	KindClick                 Kind = "click"
	KindClickText             Kind = "clickText"
	KindClickTextCheckbox     Kind = "clickTextCheckbox"
	KindClickName             Kind = "clickName"
	KindClickNth              Kind = "clickNth"
	KindClickNthName          Kind = "clickNthName"
	KindClickAriaLabel        Kind = "clickAriaLabel"
	KindClickDataTestID       Kind = "clickDataTestID"
	KindMouseClickCoordinates Kind = "mouseClickCoordinates"
	KindSelectAllText         Kind = "selectAllText"
	KindKeyPress              Kind = "keyPress"
	KindTabNTimes             Kind = "tabNTimes"
	KindEbayListingTitle      Kind = "ebayListingTitle"
	KindEbayPrice             Kind = "ebayPrice"
	KindEbayUploadImage       Kind = "ebayUploadImage"
	KindUIUploadFile          Kind = "uiUploadFile"
	KindSetVariable           Kind = "setVariable"
	KindTypeVar               Kind = "typeVar"
	KindType                  Kind = "type"
	KindSetDescription        Kind = "setDescription"
	KindWait                  Kind = "wait"
	KindLog                   Kind = "log"
	KindSectionTitle          Kind = "sectionTitle"
	KindScreenshot            Kind = "screenshot"
	KindScrollBottom          Kind = "scrollBottom"
	KindCheckPageURL          Kind = "checkPageUrl"
	KindEnd                   Kind = "end"
)

// Step is one declarative instruction: a "type" tag plus the fields that
// kind understands. Steps are plain data and are never mutated by a run.
type Step map[string]any

// Kind returns the step's type tag, or "" when it is missing.
func (s Step) Kind() Kind {
	t, _ := s["type"].(string)
	return Kind(t)
}

func (s Step) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(s))
	}
	return string(data)
}

// Action is a decoded step that knows how to run itself.
type Action interface {
	Execute(ctx context.Context, env *Env) (Flow, error)
}

var registry = map[Kind]func() Action{
	KindLoadURL:               func() Action { return &LoadURL{} },
	KindLoadProductURL:        func() Action { return &LoadProductURL{} },
	KindClick:                 func() Action { return &Click{} },
	KindClickText:             func() Action { return &ClickText{} },
	KindClickTextCheckbox:     func() Action { return &ClickTextCheckbox{} },
	KindClickName:             func() Action { return &ClickName{} },
	KindClickNth:              func() Action { return &ClickNth{} },
	KindClickNthName:          func() Action { return &ClickNthName{} },
	KindClickAriaLabel:        func() Action { return &ClickAriaLabel{} },
	KindClickDataTestID:       func() Action { return &ClickDataTestID{} },
	KindMouseClickCoordinates: func() Action { return &MouseClickCoordinates{} },
	KindSelectAllText:         func() Action { return &SelectAllText{} },
	KindKeyPress:              func() Action { return &KeyPress{} },
	KindTabNTimes:             func() Action { return &TabNTimes{} },
	KindEbayListingTitle:      func() Action { return &EbayListingTitle{} },
	KindEbayPrice:             func() Action { return &EbayPrice{} },
	KindEbayUploadImage:       func() Action { return &EbayUploadImage{} },
	KindUIUploadFile:          func() Action { return &UIUploadFile{} },
	KindSetVariable:           func() Action { return &SetVariable{} },
	KindTypeVar:               func() Action { return &TypeVar{} },
	KindType:                  func() Action { return &Type{} },
	KindSetDescription:        func() Action { return &SetDescription{} },
	KindWait:                  func() Action { return &Wait{} },
	KindLog:                   func() Action { return &Log{} },
	KindSectionTitle:          func() Action { return &SectionTitle{} },
	KindScreenshot:            func() Action { return &Screenshot{} },
	KindScrollBottom:          func() Action { return &ScrollBottom{} },
	KindCheckPageURL:          func() Action { return &CheckPageURL{} },
	KindEnd:                   func() Action { return &End{} },
}

// Known reports whether k has a handler.
func Known(k Kind) bool {
	_, ok := registry[k]
	return ok
}

// Decode turns a step into its action. Unknown kinds return a nil action and
// no error so the caller can skip them.
func Decode(s Step) (Action, error) {
	factory, ok := registry[s.Kind()]
	if !ok {
		return nil, nil
	}
	action := factory()
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode step: %w", err)
	}
	if err := json.Unmarshal(data, action); err != nil {
		return nil, fmt.Errorf("decode %s step: %w", s.Kind(), err)
	}
	return action, nil
}

// Text is a string field that also accepts numbers and booleans, since step
// lists are often hand-edited.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(x)
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*t = Text(strconv.FormatBool(x))
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Number is a numeric field that accepts JSON numbers or numeric strings.
// Anything else leaves it unset.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number{}
	switch x := v.(type) {
	case float64:
		n.Value, n.Set = x, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			n.Value, n.Set = f, true
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// NumberOf returns a set Number holding v.
func NumberOf(v float64) Number { return Number{Value: v, Set: true} }

// Int returns the value truncated to an int, or def when unset or zero.
func (n Number) Int(def int) int {
	if !n.Set || n.Value == 0 || math.IsNaN(n.Value) {
		return def
	}
	return int(n.Value)
}

// Float returns the value, or def when unset or zero.
func (n Number) Float(def float64) float64 {
	if !n.Set || n.Value == 0 || math.IsNaN(n.Value) {
		return def
	}
	return n.Value
}

// splitPaths splits a comma separated path list, dropping empty entries.
func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
