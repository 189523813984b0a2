package engine

import "sync"

// Stage of an export. Stages only move forward; Complete and Error are
// terminal.
type Stage string

const (
	StageLoading   Stage = "loading"
	StagePreparing Stage = "preparing"
	StageRendering Stage = "rendering"
	StageEncoding  Stage = "encoding"
	StageComplete  Stage = "complete"
	StageError     Stage = "error"
)

var stageOrder = map[Stage]int{
	StageLoading:   0,
	StagePreparing: 1,
	StageRendering: 2,
	StageEncoding:  3,
	StageComplete:  4,
	StageError:     5,
}

func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// CanAdvance reports whether an export in stage s may move to next.
func (s Stage) CanAdvance(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageError {
		return true
	}
	return stageOrder[next] > stageOrder[s]
}

// Progress is one notification sent to the export's observer.
type Progress struct {
	Stage   Stage
	Percent float64
	Message string
}

// ProgressFunc observes an export. It is called synchronously from the
// export goroutine and must not block.
type ProgressFunc func(Progress)

type tracker struct {
	mu      sync.Mutex
	stage   Stage
	started bool
	notify  ProgressFunc
}

func newTracker(fn ProgressFunc) *tracker {
	if fn == nil {
		fn = func(Progress) {}
	}
	return &tracker{notify: fn}
}

// enter moves to stage and reports it. Backward or post-terminal moves are
// dropped.
func (t *tracker) enter(stage Stage, percent float64, msg string) bool {
	t.mu.Lock()
	if t.started && !t.stage.CanAdvance(stage) {
		t.mu.Unlock()
		return false
	}
	t.stage, t.started = stage, true
	t.mu.Unlock()

	t.notify(Progress{Stage: stage, Percent: percent, Message: msg})
	return true
}

// report sends progress within the current stage.
func (t *tracker) report(percent float64, msg string) {
	t.mu.Lock()
	stage := t.stage
	terminal := stage.Terminal()
	t.mu.Unlock()
	if terminal {
		return
	}
	t.notify(Progress{Stage: stage, Percent: percent, Message: msg})
}

func (t *tracker) current() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}
