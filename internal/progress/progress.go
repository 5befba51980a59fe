package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/Ning0612/linksync/internal/domain"
)

// Reporter receives per-file outcomes of a synchronization pass
type Reporter interface {
	// Begin announces the walk of one path map
	Begin(src, dst string)
	// Linked reports a source file that was (re)linked
	Linked(path string)
	// Skipped reports a source file that was left alone
	Skipped(path string, reason domain.SkipReason)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type   UpdateType
	Src    string
	Dst    string
	Path   string
	Reason domain.SkipReason

	// Running totals for the pass so far
	LinkedTotal  int
	SkippedTotal int
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateBegin UpdateType = iota
	UpdateLinked
	UpdateSkipped
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback Callback
	mu       sync.Mutex
	src      string
	dst      string
	linked   int
	skipped  int
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// Begin announces a path map
func (r *CallbackReporter) Begin(src, dst string) {
	r.mu.Lock()
	r.src = src
	r.dst = dst
	update := r.update(UpdateBegin)
	callback := r.callback
	r.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(update)
	}
}

// Linked reports a linked file
func (r *CallbackReporter) Linked(path string) {
	r.mu.Lock()
	r.linked++
	update := r.update(UpdateLinked)
	update.Path = path
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// Skipped reports a skipped file
func (r *CallbackReporter) Skipped(path string, reason domain.SkipReason) {
	r.mu.Lock()
	r.skipped++
	update := r.update(UpdateSkipped)
	update.Path = path
	update.Reason = reason
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// update must be called with r.mu held
func (r *CallbackReporter) update(t UpdateType) Update {
	return Update{
		Type:         t,
		Src:          r.src,
		Dst:          r.dst,
		LinkedTotal:  r.linked,
		SkippedTotal: r.skipped,
	}
}

// ConsoleReporter prints the classic one-line-per-file progress
type ConsoleReporter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsoleReporter creates a reporter writing to out
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Begin prints the path map header
func (c *ConsoleReporter) Begin(src, dst string) {
	c.printf("\nlink %s > %s\n", src, dst)
}

// Linked prints "+ link <path>"
func (c *ConsoleReporter) Linked(path string) {
	c.printf("+ link %s\n", path)
}

// Skipped prints ". miss <path>" whatever the reason
func (c *ConsoleReporter) Skipped(path string, reason domain.SkipReason) {
	c.printf(". miss %s\n", path)
}

func (c *ConsoleReporter) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Tally counts outcomes and forwards them to an optional next reporter
type Tally struct {
	next Reporter

	mu       sync.Mutex
	linked   int
	skipped  map[domain.SkipReason]int
	pathMaps int
}

// NewTally creates a counting reporter; next may be nil
func NewTally(next Reporter) *Tally {
	return &Tally{
		next:    next,
		skipped: make(map[domain.SkipReason]int),
	}
}

// Begin counts a path map
func (t *Tally) Begin(src, dst string) {
	t.mu.Lock()
	t.pathMaps++
	t.mu.Unlock()
	if t.next != nil {
		t.next.Begin(src, dst)
	}
}

// Linked counts a linked file
func (t *Tally) Linked(path string) {
	t.mu.Lock()
	t.linked++
	t.mu.Unlock()
	if t.next != nil {
		t.next.Linked(path)
	}
}

// Skipped counts a skipped file by reason
func (t *Tally) Skipped(path string, reason domain.SkipReason) {
	t.mu.Lock()
	t.skipped[reason]++
	t.mu.Unlock()
	if t.next != nil {
		t.next.Skipped(path, reason)
	}
}

// LinkedCount returns the number of linked files
func (t *Tally) LinkedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.linked
}

// SkippedCount returns skipped files for one reason
func (t *Tally) SkippedCount(reason domain.SkipReason) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped[reason]
}

// SkippedTotal returns skipped files for all reasons
func (t *Tally) SkippedTotal() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.skipped {
		total += n
	}
	return total
}

// PathMaps returns the number of path maps begun
func (t *Tally) PathMaps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pathMaps
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) Begin(src, dst string)                         {}
func (NullReporter) Linked(path string)                            {}
func (NullReporter) Skipped(path string, reason domain.SkipReason) {}
