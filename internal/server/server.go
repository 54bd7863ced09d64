// Package server exposes the runner over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/runner"
	"github.com/rahul/puppetry/internal/steps"
	"github.com/rahul/puppetry/internal/store"
)

// Presets lists and resolves named presets. *store.PresetStore satisfies it.
type Presets interface {
	Names() ([]string, error)
	Get(name string) (store.Preset, error)
}

// History reads back recorded runs. *store.HistoryStore satisfies it.
type History interface {
	ListRuns(limit int) ([]store.Run, error)
	GetRun(id string) (store.Run, error)
	RunLogs(id string) ([]string, error)
}

type Server struct {
	Runner  *runner.Runner
	Presets Presets
	History History
	// StaticDir, when set, is served at / for the control page.
	StaticDir string
}

func New(r *runner.Runner, presets Presets, history History) *Server {
	return &Server{Runner: r, Presets: presets, History: history}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(withLogging)
	r.Use(withCORS)

	r.Post("/run", s.handleRun)
	r.Get("/presets", s.handlePresets)
	r.Get("/getPuppets", s.handlePresets)
	r.Post("/runPreset", s.handleRunPreset)
	r.Post("/runPuppet", s.handleRunPreset)
	r.Post("/resetBrowser", s.handleReset)
	r.Get("/status", s.handleStatus)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
		r.Get("/{id}/logs", s.handleRunLogs)
	})

	if s.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.StaticDir)))
	}
	return r
}

// runBody accepts either a bare step array or a full request object.
type runBody struct {
	runner.Request
}

func (b *runBody) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &b.Steps)
	}
	var aux struct {
		runner.Request
		PrintifyProductURL string `json:"printifyProductURL"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Request = aux.Request
	if b.ProductURL == "" {
		b.ProductURL = aux.PrintifyProductURL
	}
	return nil
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if len(body.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "steps required")
		return
	}

	// A client disconnect must not abort a half-finished run.
	ctx := context.WithoutCancel(r.Context())
	if err := s.Runner.Run(ctx, body.Request, func(line string) { log.Println(line) }); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	names, err := s.Presets.Names()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

type runPresetBody struct {
	PuppetName         string            `json:"puppetName"`
	Name               string            `json:"name"`
	ProductURL         string            `json:"productURL"`
	PrintifyProductURL string            `json:"printifyProductURL"`
	Loops              steps.Number      `json:"loops"`
	Variables          map[string]string `json:"variables"`
}

func (s *Server) handleRunPreset(w http.ResponseWriter, r *http.Request) {
	var body runPresetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	name := body.PuppetName
	if name == "" {
		name = body.Name
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "puppetName required")
		return
	}
	preset, err := s.Presets.Get(name)
	if errors.Is(err, store.ErrPresetNotFound) {
		writeError(w, http.StatusNotFound, store.ErrPresetNotFound.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	productURL := body.ProductURL
	if productURL == "" {
		productURL = body.PrintifyProductURL
	}
	req := runner.FromPreset(name, preset, productURL, body.Loops.Int(0), body.Variables)

	sse := newEventStream(w)
	ctx := context.WithoutCancel(r.Context())
	err = s.Runner.Run(ctx, req, sse.send)
	if err != nil {
		sse.send("error: " + err.Error())
		return
	}
	sse.send("done")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Runner.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, observability.GetStatus())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusOK, []store.Run{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.History.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusNotFound, store.ErrRunNotFound.Error())
		return
	}
	run, err := s.History.GetRun(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusNotFound, store.ErrRunNotFound.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.History.GetRun(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	lines, err := s.History.RunLogs(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, lines)
}

// eventStream writes server-sent events, one line per event.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) *eventStream {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: f}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func (e *eventStream) send(line string) {
	// Writes after the client left are dropped; the run carries on.
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", lineBreaks.Replace(line)); err != nil {
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helpers
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
