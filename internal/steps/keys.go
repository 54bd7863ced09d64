package steps

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var keyNames = map[string]string{
	"backspace":  "Backspace",
	"tab":        "Tab",
	"enter":      "Enter",
	"escape":     "Escape",
	"esc":        "Escape",
	"space":      "Space",
	"arrowleft":  "ArrowLeft",
	"arrowright": "ArrowRight",
	"arrowup":    "ArrowUp",
	"arrowdown":  "ArrowDown",
	"delete":     "Delete",
	"del":        "Delete",
	"insert":     "Insert",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"shift":      "Shift",
	"ctrl":       "Control",
	"control":    "Control",
	"alt":        "Alt",
	"option":     "Alt",
	"meta":       "Meta",
	"cmd":        "Meta",
	"command":    "Meta",
	"capslock":   "CapsLock",
}

// NormalizeKey maps a loosely written key name to its canonical form.
// Unknown multi-character names are capitalised, so "f5" becomes "F5";
// single characters are kept.
func NormalizeKey(raw string) string {
	if raw == "" {
		return "Backspace"
	}
	if k, ok := keyNames[strings.ToLower(raw)]; ok {
		return k
	}
	if utf8.RuneCountInString(raw) == 1 {
		return raw
	}
	r, size := utf8.DecodeRuneInString(raw)
	return string(unicode.ToUpper(r)) + raw[size:]
}
