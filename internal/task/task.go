package task

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a download task.
type Status string

const (
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// IsTerminal reports whether the status is final. A terminal task never
// changes status again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Task is the mutable record of one submitted download job. One worker
// goroutine owns the status/progress/filename/error fields; polling
// handlers only read. The cancelled flag is the one field a request
// handler may set. All access goes through the locking accessors.
type Task struct {
	ID         string
	IsPlaylist bool
	CreatedAt  time.Time

	mu            sync.Mutex
	status        Status
	progress      float64
	filename      string
	errMsg        string
	current       int // 1-based index of the in-flight playlist item
	total         int
	currentTitle  string
	playlistTitle string
	cancelled     bool
}

// Snapshot is an immutable copy of a task's state, shaped for the
// progress endpoint's JSON response.
type Snapshot struct {
	Status        Status  `json:"status"`
	Progress      float64 `json:"progress"`
	Filename      *string `json:"filename"`
	Error         *string `json:"error"`
	IsPlaylist    bool    `json:"is_playlist"`
	Current       int     `json:"current,omitempty"`
	Total         int     `json:"total,omitempty"`
	CurrentTitle  string  `json:"current_title,omitempty"`
	PlaylistTitle string  `json:"playlist_title,omitempty"`
	Cancelled     bool    `json:"cancelled,omitempty"`
}

// Snapshot copies the task state under its lock.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Status:     t.status,
		Progress:   t.progress,
		IsPlaylist: t.IsPlaylist,
	}
	if t.filename != "" {
		name := t.filename
		s.Filename = &name
	}
	if t.errMsg != "" {
		msg := t.errMsg
		s.Error = &msg
	}
	if t.IsPlaylist {
		s.Current = t.current
		s.Total = t.total
		s.CurrentTitle = t.currentTitle
		s.PlaylistTitle = t.playlistTitle
		s.Cancelled = t.cancelled
	}
	return s
}

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetDownloading records byte-level progress. It is a no-op once the
// task has reached a terminal state.
func (t *Task) SetDownloading(progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.status = StatusDownloading
	if progress > t.progress {
		t.progress = progress
	}
}

// SetProcessing marks the download finished and post-processing started.
func (t *Task) SetProcessing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.status = StatusProcessing
	t.progress = 100
}

// Complete moves the task to its terminal completed state.
func (t *Task) Complete(filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.status = StatusCompleted
	t.progress = 100
	t.filename = filename
	t.errMsg = ""
}

// Fail moves the task to its terminal error state.
func (t *Task) Fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.status = StatusError
	t.errMsg = msg
	t.filename = ""
}

// Cancel sets the cooperative cancellation flag and marks the task
// cancelled. The owning worker converges on the same terminal state at
// its next item boundary. Returns false once the task is already
// terminal with a state other than cancelled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() && t.status != StatusCancelled {
		return false
	}
	t.cancelled = true
	t.status = StatusCancelled
	return true
}

// Cancelled reports whether cancellation has been requested.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// FinishCancelled records the worker-side finalisation of a cancelled
// playlist run, with a summary of how many items completed first.
func (t *Task) FinishCancelled(summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusCancelled
	t.filename = summary
}

// SetPlaylistInfo records the probed playlist title and item count.
func (t *Task) SetPlaylistInfo(title string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playlistTitle = title
	t.total = total
}

// StartItem records the playlist item about to be fetched. Progress is
// item-granular: the share of items already completed.
func (t *Task) StartItem(index1 int, title string, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return
	}
	t.status = StatusDownloading
	t.current = index1
	t.currentTitle = truncate(title, 40)
	t.progress = progress
}

// ErrMsg returns the recorded error message, if any.
func (t *Task) ErrMsg() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

// Filename returns the recorded output filename, if any.
func (t *Task) Filename() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filename
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
