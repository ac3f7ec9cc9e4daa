package task

import (
	"fmt"
	"sync"
)

// Reporter is the producer side of a progress source.
type Reporter interface {
	Report(line string)
	Reportf(format string, args ...any)
}

// Progress is an unbounded FIFO of progress lines shared by one producer and
// one consumer. Reporting never blocks; lines reported after Close are
// dropped.
type Progress struct {
	mu     sync.Mutex
	lines  []string
	last   string
	closed bool
}

func NewProgress() *Progress {
	return &Progress{}
}

func (p *Progress) Report(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.lines = append(p.lines, line)
	p.last = line
}

func (p *Progress) Reportf(format string, args ...any) {
	p.Report(fmt.Sprintf(format, args...))
}

// Drain removes and returns every queued line without blocking. closed is
// true once the producer has finished and nothing remains to be read.
func (p *Progress) Drain() (lines []string, closed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines = p.lines
	p.lines = nil
	return lines, p.closed
}

// Close marks the producer as finished. It is safe to call more than once.
func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Last returns the most recently reported line.
func (p *Progress) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Func adapts the reporter to the plain callback used by fileops.
func Func(r Reporter) func(string) {
	return r.Report
}
