package observability

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

// termMu serialises log output with the status line.
var termMu sync.Mutex

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

type termWriter struct {
	out io.Writer
}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return tw.out.Write(p)
}

// NewTermWriter returns an io.Writer for log.SetOutput that never interleaves
// with PrintLiveStatus.
func NewTermWriter() io.Writer {
	return termWriter{out: os.Stderr}
}

func PrintBanner(w io.Writer, color bool) {
	banner := `
    ____  __  ______  ____  ______________  __
   / __ \/ / / / __ \/ __ \/ ____/_  __/ _ \/ /
  / /_/ / / / / /_/ / /_/ / __/   / / / , _/_/
 / ____/ /_/ / ____/ ____/ /___  / / / /| |_/
/_/    \____/_/   /_/   /_____/ /_/ /_/ |_(_)

        >> browser steps, on strings <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		if color {
			fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
		} else {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
		}
	}
}

// Pulse grades the heartbeat age.
func Pulse(lastHB time.Time, now time.Time) string {
	delta := now.Sub(lastHB)
	switch {
	case delta < 40*time.Second:
		return "HEALTHY"
	case delta < 90*time.Second:
		return "LAGGING"
	}
	return "OFFLINE"
}

// StatusLine renders the current status in one line.
func StatusLine(color bool) string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memMB := float64(m.Alloc) / 1024 / 1024
	uptime := time.Since(startTime).Round(time.Second)

	st := GetStatus()
	task := st.ActiveTask
	if task == "" {
		task = "Waiting..."
	}
	if r := []rune(task); len(r) > 25 {
		task = string(r[:22]) + "..."
	}

	pulse := Pulse(st.LastHeartbeat, time.Now())
	if !color {
		return fmt.Sprintf("[%s] %-7s | %-7s %s | up %v | %.1fMB",
			st.LastHeartbeat.Format("15:04:05"), pulse, st.Role, task, uptime, memMB)
	}

	pulseColor := colorNeonMag
	switch pulse {
	case "HEALTHY":
		pulseColor = colorNeonCyan
	case "LAGGING":
		pulseColor = colorPurple
	}
	roleColor := colorReset
	if st.Role == RoleRunning {
		roleColor = colorNeonMag
	}
	return fmt.Sprintf("[%s] %s%-7s%s | %s%-7s%s %s | up %v | %.1fMB",
		st.LastHeartbeat.Format("15:04:05"),
		pulseColor, pulse, colorReset,
		roleColor, st.Role, colorReset,
		task, uptime, memMB)
}

// PrintLiveStatus writes the status line to stderr.
func PrintLiveStatus(color bool) {
	line := StatusLine(color)
	termMu.Lock()
	fmt.Fprintln(os.Stderr, line)
	termMu.Unlock()
}
