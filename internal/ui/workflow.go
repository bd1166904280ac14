package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TaskStatus is the state of one workflow task.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
	TaskSkipped
)

// Task is one line of a Workflow.
type Task struct {
	Name    string
	Status  TaskStatus
	Message string
	Details string // shown after completion
	started time.Time
	elapsed time.Duration
}

// Workflow redraws a list of tasks in place with a spinner on the running one.
// It is driven from the caller's goroutine; the spinner ticks on its own.
type Workflow struct {
	writer     io.Writer
	title      string
	mu         sync.Mutex
	tasks      []*Task
	frame      int
	stop       chan struct{}
	done       chan struct{}
	running    bool
	lastLines  int
	interval   time.Duration
	headerDone bool
}

// NewWorkflow creates a workflow writing to w. An empty title prints no header.
func NewWorkflow(w io.Writer, title string) *Workflow {
	return &Workflow{writer: w, title: title, interval: 80 * time.Millisecond}
}

// AddTask appends a pending task and returns its index.
func (wf *Workflow) AddTask(name string) int {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.tasks = append(wf.tasks, &Task{Name: name})
	return len(wf.tasks) - 1
}

// Len is the number of tasks.
func (wf *Workflow) Len() int {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	return len(wf.tasks)
}

func (wf *Workflow) set(idx int, fn func(t *Task)) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if idx >= 0 && idx < len(wf.tasks) {
		fn(wf.tasks[idx])
	}
}

// StartTask marks idx as running.
func (wf *Workflow) StartTask(idx int, message string) {
	wf.set(idx, func(t *Task) {
		t.Status, t.Message, t.started = TaskRunning, message, time.Now()
	})
}

// UpdateMessage replaces the message of idx.
func (wf *Workflow) UpdateMessage(idx int, message string) {
	wf.set(idx, func(t *Task) { t.Message = message })
}

// CompleteTask marks idx as done.
func (wf *Workflow) CompleteTask(idx int, details string) {
	wf.set(idx, func(t *Task) {
		t.Status, t.Details = TaskDone, details
		if !t.started.IsZero() {
			t.elapsed = time.Since(t.started)
		}
	})
}

// FailTask marks idx as failed.
func (wf *Workflow) FailTask(idx int, errMsg string) {
	wf.set(idx, func(t *Task) { t.Status, t.Message = TaskFailed, errMsg })
}

// SkipTask marks idx as skipped.
func (wf *Workflow) SkipTask(idx int, reason string) {
	wf.set(idx, func(t *Task) { t.Status, t.Message = TaskSkipped, reason })
}

// Status reports the state of idx.
func (wf *Workflow) Status(idx int) TaskStatus {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if idx < 0 || idx >= len(wf.tasks) {
		return TaskPending
	}
	return wf.tasks[idx].Status
}

// Start begins the spinner. Calling Start twice is a no-op.
func (wf *Workflow) Start() {
	wf.mu.Lock()
	if wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = true
	wf.stop = make(chan struct{})
	wf.done = make(chan struct{})
	wf.mu.Unlock()

	go func() {
		defer close(wf.done)
		ticker := time.NewTicker(wf.interval)
		defer ticker.Stop()
		for {
			select {
			case <-wf.stop:
				return
			case <-ticker.C:
				wf.mu.Lock()
				wf.frame = (wf.frame + 1) % len(spinnerFrames)
				wf.draw(false)
				wf.mu.Unlock()
			}
		}
	}()
}

// Stop halts the spinner and prints the final state of every task.
func (wf *Workflow) Stop() {
	wf.mu.Lock()
	if !wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = false
	wf.mu.Unlock()

	close(wf.stop)
	<-wf.done

	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.draw(true)
}

// draw rewrites the task block. Callers hold wf.mu.
func (wf *Workflow) draw(final bool) {
	var b strings.Builder
	if !wf.headerDone && wf.title != "" {
		b.WriteString(Title.Render(wf.title))
		b.WriteString("\n")
		wf.headerDone = true
	}
	b.WriteString(strings.Repeat("\033[A\033[K", wf.lastLines))
	for _, t := range wf.tasks {
		b.WriteString(wf.line(t, final))
		b.WriteString("\n")
	}
	wf.lastLines = len(wf.tasks)
	fmt.Fprint(wf.writer, b.String())
}

func (wf *Workflow) line(t *Task, final bool) string {
	var icon string
	var name, msg styleWrapper
	switch t.Status {
	case TaskRunning:
		if final {
			icon, name, msg = Muted.Render("○"), StepPending, Dim
			break
		}
		icon, name, msg = Secondary.Render(spinnerFrames[wf.frame]), StepRunning, Secondary
	case TaskDone:
		icon, name, msg = GetCheckMark(), StepComplete, Dim
	case TaskFailed:
		icon, name, msg = GetCrossMark(), StepFailed, Error
	case TaskSkipped:
		icon, name, msg = Warning.Render("⊘"), StepSkipped, Warning
	default:
		icon, name, msg = Muted.Render("○"), StepPending, Dim
	}

	out := icon + " " + name.Render(t.Name)
	switch {
	case t.Status == TaskDone && t.Details != "":
		out += " " + Dim.Render("→ "+t.Details)
		if final && t.elapsed > 0 {
			out += " " + Muted.Render("("+t.elapsed.Round(time.Millisecond).String()+")")
		}
	case t.Status == TaskFailed || t.Status == TaskSkipped:
		if t.Message != "" {
			out += " " + msg.Render("→ "+t.Message)
		}
	case !final && t.Message != "":
		out += " " + msg.Render(t.Message)
	}
	return out
}
