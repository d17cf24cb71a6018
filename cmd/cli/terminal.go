package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fabio1shot/card-price-extractor/internal/notify"
)

const barWidth = 30

// terminalSink prints notifications and a single-line progress bar to a
// terminal stream.
type terminalSink struct {
	mu      sync.Mutex
	w       io.Writer
	barOpen bool
}

func newTerminalSink(w io.Writer) *terminalSink {
	return &terminalSink{w: w}
}

func (s *terminalSink) Notify(n notify.Notification) {
	// The bar already shows progress.
	if n.Kind == notify.KindProgress {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.endBar()
	marker := "✓"
	if n.Destructive() {
		marker = "!"
	}
	fmt.Fprintf(s.w, "%s %s: %s\n", marker, n.Title, n.Message)
}

func (s *terminalSink) Progress(p notify.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filled := int(p.Percent / 100 * barWidth)
	filled = max(0, min(filled, barWidth))
	fmt.Fprintf(s.w, "\r[%s%s] %3.0f%% (%d/%d)",
		strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled),
		p.Percent, p.Completed, p.Total)
	s.barOpen = true
}

// Close terminates an open progress line.
func (s *terminalSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endBar()
}

func (s *terminalSink) endBar() {
	if s.barOpen {
		fmt.Fprintln(s.w)
		s.barOpen = false
	}
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N] ", prompt); err != nil {
		return false, err
	}
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
