package pipeline

import (
	"strings"
	"sync"

	"github.com/markis/smooth/internal/chunk"
)

// Status is the lifecycle state of one chunk's result.
type Status int

const (
	Pending Status = iota
	InProgress
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type slot struct {
	status Status
	text   string
	err    error
}

// resultTable holds one slot per chunk. Each slot is written only by the
// worker that claimed its index; the mutex orders those writes against
// whole-table reads and keeps progress publishes serialized.
type resultTable struct {
	mu    sync.Mutex
	slots []slot

	onProgress ProgressFunc
	published  bool
	last       string
}

func newResultTable(n int, onProgress ProgressFunc) *resultTable {
	return &resultTable{slots: make([]slot, n), onProgress: onProgress}
}

// update writes slot i and publishes the resulting snapshot if it changed.
func (t *resultTable) update(i int, s slot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.slots[i] = s
	t.publishLocked()
}

// flush publishes the current snapshot unless it was already the last one sent.
func (t *resultTable) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.publishLocked()
}

// publishLocked sends the current snapshot unless it repeats the last one.
// Slot text only grows, so once the final text is sent no later snapshot
// differs from it.
func (t *resultTable) publishLocked() {
	snapshot := t.snapshotLocked()
	if t.published && snapshot == t.last {
		return
	}
	t.published = true
	t.last = snapshot
	if t.onProgress != nil {
		t.onProgress(snapshot)
	}
}

// snapshotLocked joins every slot's available text in index order. Failed
// and pending slots contribute an empty span.
func (t *resultTable) snapshotLocked() string {
	var b strings.Builder
	for i, s := range t.slots {
		if i > 0 {
			b.WriteString(chunk.Separator)
		}
		if s.status == InProgress || s.status == Done {
			b.WriteString(s.text)
		}
	}
	return b.String()
}

func (t *resultTable) result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := Result{
		Text:   t.snapshotLocked(),
		Chunks: make([]ChunkReport, len(t.slots)),
	}
	for i, s := range t.slots {
		res.Chunks[i] = ChunkReport{Index: i, Status: s.status, Err: s.err, Bytes: len(s.text)}
	}
	return res
}
