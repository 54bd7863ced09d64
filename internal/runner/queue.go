package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/rahul/puppetry/internal/steps"
	"github.com/rahul/puppetry/internal/store"
)

type ItemState string

const (
	StateQueued   ItemState = "queued"
	StateRunning  ItemState = "running"
	StateFinished ItemState = "finished"
	StateFailed   ItemState = "failed"
	StateStopped  ItemState = "stopped"
)

var ErrQueueRunning = errors.New("queue is already running")

// Item is one queued preset run. The JSON form matches queue exports.
type Item struct {
	PuppetName string            `json:"puppetName"`
	ProductURL string            `json:"printifyProductURL,omitempty"`
	Loops      steps.Number      `json:"loops,omitzero"`
	Variables  map[string]string `json:"variables,omitempty"`
	State      ItemState         `json:"state,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (it *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	var aux struct {
		plain
		ProductURL string `json:"productURL"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*it = Item(aux.plain)
	if it.ProductURL == "" {
		it.ProductURL = aux.ProductURL
	}
	return nil
}

// PresetSource resolves preset names. *store.PresetStore satisfies it.
type PresetSource interface {
	Get(name string) (store.Preset, error)
}

// Queue runs preset items strictly one after another.
type Queue struct {
	mu       sync.Mutex
	items    []*Item
	running  bool
	stopping bool

	Runner  *Runner
	Presets PresetSource
	// Log receives every run's log lines.
	Log steps.LogFunc
}

func NewQueue(r *Runner, presets PresetSource) *Queue {
	return &Queue{Runner: r, Presets: presets}
}

func (q *Queue) Add(items ...Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range items {
		it.State = StateQueued
		it.Error = ""
		q.items = append(q.items, &it)
	}
}

// Import replaces the queue with the items of a JSON export.
func (q *Queue) Import(r io.Reader) error {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return fmt.Errorf("decode queue: %w", err)
	}
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return ErrQueueRunning
	}
	q.items = nil
	q.mu.Unlock()
	q.Add(items...)
	return nil
}

// Export writes the items without their run state.
func (q *Queue) Export(w io.Writer) error {
	items := q.Items()
	for i := range items {
		items[i].State = ""
		items[i].Error = ""
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// Items returns a snapshot of the queue.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	for i, it := range q.items {
		out[i] = *it
	}
	return out
}

// Start runs every queued item in order and returns when the queue is done
// or stopped. A failed item does not stop the queue.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return ErrQueueRunning
	}
	q.running, q.stopping = true, false
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		item := q.next()
		if item == nil {
			return nil
		}

		err := q.runItem(ctx, item)

		q.mu.Lock()
		switch {
		case err != nil:
			item.State, item.Error = StateFailed, err.Error()
		case q.stopping:
			item.State = StateStopped
		default:
			item.State = StateFinished
		}
		stop := q.stopping
		q.mu.Unlock()

		if err != nil {
			log.Printf("Queue item %s failed: %v", item.PuppetName, err)
		}
		if stop {
			return nil
		}
	}
}

// next marks the first queued item as running.
func (q *Queue) next() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.State == StateQueued {
			it.State = StateRunning
			return it
		}
	}
	return nil
}

func (q *Queue) runItem(ctx context.Context, it *Item) error {
	preset, err := q.Presets.Get(it.PuppetName)
	if err != nil {
		return err
	}
	req := FromPreset(it.PuppetName, preset, it.ProductURL, it.Loops.Int(0), it.Variables)
	return q.Runner.Run(ctx, req, q.Log)
}

// Stop lets the current item finish and then stops the queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		q.stopping = true
	}
}

func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}
