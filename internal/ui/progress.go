package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// StepStatus is the state of one tracked item.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusRunning
	StatusComplete
	StatusFailed
	StatusSkipped
)

// Step is one tracked item, typically an input file.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
}

// maxVisibleSteps bounds the step list; older finished items scroll away.
const maxVisibleSteps = 8

// ProgressModel is the Bubble Tea model behind ProgressTracker.
type ProgressModel struct {
	spinner  spinner.Model
	bar      progress.Model
	title    string
	steps    []Step
	message  string
	done     bool
	err      error
	quitting bool
}

// NewProgressModel creates a model tracking the named steps.
func NewProgressModel(title string, steps []string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	m := ProgressModel{
		spinner: s,
		bar:     progress.New(progress.WithColors(ColorSecondary, ColorSuccess), progress.WithWidth(40)),
		title:   title,
		steps:   make([]Step, len(steps)),
	}
	for i, name := range steps {
		m.steps[i] = Step{Name: name}
	}
	return m
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// ProgressMsg updates one step. StepIndex -1 only sets the message line.
type ProgressMsg struct {
	StepIndex int
	Status    StepStatus
	Message   string
	Line      string
}

// DoneMsg ends the display.
type DoneMsg struct {
	Err error
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 10
		if w > 60 {
			w = 60
		}
		if w > 10 {
			m.bar.SetWidth(w)
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ProgressMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) {
			m.steps[msg.StepIndex].Status = msg.Status
			m.steps[msg.StepIndex].Message = msg.Message
		}
		if msg.Line != "" {
			m.message = msg.Line
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Finished counts steps that are no longer pending or running.
func (m ProgressModel) Finished() int {
	n := 0
	for _, s := range m.steps {
		if s.Status == StatusComplete || s.Status == StatusFailed || s.Status == StatusSkipped {
			n++
		}
	}
	return n
}

func (m ProgressModel) percent() float64 {
	if len(m.steps) == 0 {
		return 0
	}
	return float64(m.Finished()) / float64(len(m.steps))
}

func (m ProgressModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	return tea.NewView(m.render())
}

func (m ProgressModel) render() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(Title.Render(m.title))
		b.WriteString("\n\n")
	}
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString(Dim.Render(fmt.Sprintf("  %d/%d", m.Finished(), len(m.steps))))
	b.WriteString("\n\n")

	start := 0
	if len(m.steps) > maxVisibleSteps {
		start = len(m.steps) - maxVisibleSteps
		for i, s := range m.steps {
			if s.Status == StatusRunning || s.Status == StatusPending {
				start = min(i, start)
				break
			}
		}
	}
	end := min(start+maxVisibleSteps, len(m.steps))
	for i := start; i < end; i++ {
		b.WriteString(m.stepLine(m.steps[i]))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	if m.message != "" {
		b.WriteString("\n\n")
		b.WriteString(Dim.Render(m.message))
	}
	if m.done {
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(ErrorBox.Render(GetCrossMark() + " " + m.err.Error()))
		} else {
			b.WriteString(Success.Render(fmt.Sprintf("✓ Processed %d/%d", m.Finished(), len(m.steps))))
		}
	}
	return b.String()
}

func (m ProgressModel) stepLine(s Step) string {
	var icon string
	var style styleWrapper
	switch s.Status {
	case StatusRunning:
		icon, style = m.spinner.View(), StepRunning
	case StatusComplete:
		icon, style = GetCheckMark(), StepComplete
	case StatusFailed:
		icon, style = GetCrossMark(), StepFailed
	case StatusSkipped:
		icon, style = Warning.Render("⊘"), StepSkipped
	default:
		icon, style = Muted.Render("○"), StepPending
	}
	line := icon + " " + style.Render(s.Name)
	if s.Message != "" && s.Status != StatusPending {
		line += Dim.Render(" → " + s.Message)
	}
	return line
}

// ProgressTracker drives a ProgressModel from ordinary code.
type ProgressTracker struct {
	program *tea.Program
	model   ProgressModel
	out     io.Writer
	mu      sync.Mutex
	running bool
	exited  chan struct{}
}

// NewProgressTracker creates a tracker for the named steps writing to w.
func NewProgressTracker(w io.Writer, title string, steps []string) *ProgressTracker {
	return &ProgressTracker{model: NewProgressModel(title, steps), out: w}
}

// Start launches the display.
func (pt *ProgressTracker) Start() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if pt.running {
		return
	}
	pt.program = tea.NewProgram(pt.model, tea.WithOutput(pt.out), tea.WithoutSignalHandler())
	pt.exited = make(chan struct{})
	pt.running = true
	go func() {
		defer close(pt.exited)
		_, _ = pt.program.Run()
	}()
}

func (pt *ProgressTracker) send(msg tea.Msg) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if pt.program == nil || !pt.running {
		return
	}
	pt.program.Send(msg)
}

// UpdateStep sets the status of step index.
func (pt *ProgressTracker) UpdateStep(index int, status StepStatus, message string) {
	pt.send(ProgressMsg{StepIndex: index, Status: status, Message: message})
}

// SetMessage sets the line shown under the steps.
func (pt *ProgressTracker) SetMessage(message string) {
	pt.send(ProgressMsg{StepIndex: -1, Line: message})
}

// Complete shows the final state and waits for the display to exit.
func (pt *ProgressTracker) Complete(err error) {
	pt.mu.Lock()
	if pt.program == nil || !pt.running {
		pt.mu.Unlock()
		return
	}
	pt.program.Send(DoneMsg{Err: err})
	pt.running = false
	exited := pt.exited
	pt.mu.Unlock()

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		pt.program.Kill()
	}
}
