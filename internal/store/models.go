package store

import (
	"encoding/json"
	"time"

	"github.com/rahul/puppetry/internal/steps"
)

// Preset is a named step list with its default run settings.
type Preset struct {
	Steps        []steps.Step      `json:"steps"`
	CloseBrowser bool              `json:"closeBrowser"`
	LoopEnabled  bool              `json:"loopEnabled"`
	LoopCount    steps.Number      `json:"loopCount"`
	ProductURL   string            `json:"productURL,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
}

func (p *Preset) UnmarshalJSON(b []byte) error {
	type plain Preset
	var aux struct {
		plain
		LegacyProductURL string `json:"printifyProductURL"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Preset(aux.plain)
	if p.ProductURL == "" {
		p.ProductURL = aux.LegacyProductURL
	}
	return nil
}

// Loops resolves the iteration count: an override wins, then the preset's
// loop settings, then 1.
func (p Preset) Loops(override int) int {
	if override > 0 {
		return override
	}
	if p.LoopEnabled {
		if n := p.LoopCount.Int(1); n > 0 {
			return n
		}
	}
	return 1
}

// PresetFromRequest builds a preset from a step file's settings.
func PresetFromRequest(list []steps.Step, closeBrowser bool, loops int, productURL string, vars map[string]string) Preset {
	p := Preset{
		Steps:        list,
		CloseBrowser: closeBrowser,
		ProductURL:   productURL,
		Variables:    vars,
	}
	if loops > 1 {
		p.LoopEnabled = true
		p.LoopCount = steps.Number{Value: float64(loops), Set: true}
	}
	return p
}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "error"
)

// Run is one orchestrator invocation as recorded in history.
type Run struct {
	ID         string     `json:"id"`
	Preset     string     `json:"preset,omitempty"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	Loops      int        `json:"loops"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
