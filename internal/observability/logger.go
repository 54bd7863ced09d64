package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeRun       EventType = "run"
	EventTypeStep      EventType = "step"
	EventTypeSkip      EventType = "skip"
	EventTypePolicy    EventType = "policy_check"
	EventTypeUpload    EventType = "upload"
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeLLM       EventType = "llm"
	EventTypeJump      EventType = "jump"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Step      int       `json:"step,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. A nil *Logger discards everything.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, "logs")
}

// NewLoggerTo writes events to out and LLM transcripts under dir. An empty dir
// disables the transcript file.
func NewLoggerTo(out io.Writer, dir string) *Logger {
	l := &Logger{
		out:     out,
		maxSize: 10 * 1024 * 1024, // 10MB
	}
	if dir != "" {
		l.llmLogPath = filepath.Join(dir, "llm.jsonl")
	}
	return l
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf("{\"error\": \"failed to marshal event: %v\"}", err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogRun(runID, state string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["state"] = state
	l.Log(Event{Type: EventTypeRun, RunID: runID, Data: data})
}

func (l *Logger) LogStep(runID string, step int, kind, args string) {
	l.Log(Event{
		Type:  EventTypeStep,
		RunID: runID,
		Step:  step,
		Data: map[string]string{
			"kind": kind,
			"args": args,
		},
	})
}

func (l *Logger) LogSkip(runID string, step int, kind string) {
	l.Log(Event{
		Type:  EventTypeSkip,
		RunID: runID,
		Step:  step,
		Data:  map[string]string{"kind": kind, "reason": "unknown step type"},
	})
}

func (l *Logger) LogJump(runID string, step int, kind string, target int, reason string) {
	l.Log(Event{
		Type:  EventTypeJump,
		RunID: runID,
		Step:  step,
		Data:  map[string]any{"kind": kind, "target": target, "reason": reason},
	})
}

func (l *Logger) LogPolicy(runID string, step int, kind string, err error) {
	l.Log(Event{
		Type:  EventTypePolicy,
		RunID: runID,
		Step:  step,
		Data:  map[string]string{"kind": kind, "error": err.Error()},
	})
}

func (l *Logger) LogUpload(runID, file string, status int) {
	l.Log(Event{
		Type:  EventTypeUpload,
		RunID: runID,
		Data:  map[string]any{"file": file, "status": status},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(runID, purpose string, prompt any, response string) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: runID,
		Data: map[string]any{
			"purpose":  purpose,
			"prompt":   prompt,
			"response": response,
		},
	})
}
