// Package ui implements the interactive progress view for a migration run
// using bubbletea's Elm architecture.
//
// The [Model] shows a spinner, the phase of the record in flight, and live
// counters. Progress updates flow through a channel from the migration engine,
// bridged into the event loop one message at a time; the display is cosmetic
// and the engine's [migrate.RunResult] stays authoritative.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"idmigrate/internal/migrate"
)

// RunFunc starts the migration and reports its result. The model owns the
// progress channel and closes it once the run returns.
type RunFunc func(progress chan<- migrate.ProgressUpdate) (*migrate.RunResult, error)

type progressUpdateMsg migrate.ProgressUpdate

type runCompleteMsg struct{}

// Model represents the migration progress view state.
type Model struct {
	entity       string
	run          RunFunc
	spin         spinner.Model
	progressChan chan migrate.ProgressUpdate
	runDone      chan struct{}
	progress     migrate.ProgressUpdate
	migrated     int
	existing     int
	failed       int
	done         bool
	result       *migrate.RunResult
	err          error
}

// NewModel creates a progress view for one run and starts the run goroutine.
// The run starts here, not in Init: the program can exit without ever calling
// Init (already-cancelled context), and Result must still complete.
func NewModel(entity string, run RunFunc) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	m := &Model{
		entity:  entity,
		run:     run,
		spin:    sp,
		runDone: make(chan struct{}),
	}
	m.startRun()
	return m
}

// Result returns the run's result and error. It blocks until the run
// goroutine has finished: the program can exit before the run does (quit key,
// cancellation), and the partial counters must not be lost.
func (m *Model) Result() (*migrate.RunResult, error) {
	<-m.runDone
	return m.result, m.err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForProgress())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = migrate.ProgressUpdate(msg)
		if m.progress.Phase == migrate.RecordDone {
			switch m.progress.Outcome {
			case migrate.Created:
				m.migrated++
			case migrate.AlreadyExists:
				m.existing++
			case migrate.Failed:
				m.failed++
			}
		}
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) View() string {
	title := styles.title.Render(fmt.Sprintf("Importing %s", m.entity))

	var status string
	if m.done {
		status = styles.ok.Render("✓ Run complete")
	} else {
		status = fmt.Sprintf("%s %s", m.spin.View(), m.progress.Message)
	}

	counts := fmt.Sprintf(
		"%s  %s  %s",
		styles.ok.Render(fmt.Sprintf("migrated: %d", m.migrated)),
		styles.warn.Render(fmt.Sprintf("already exists: %d", m.existing)),
		styles.err.Render(fmt.Sprintf("failed: %d", m.failed)),
	)

	help := styles.help.Render("q to quit")

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n", title, status, counts, help)
}

// startRun launches the migration goroutine.
func (m *Model) startRun() {
	m.progressChan = make(chan migrate.ProgressUpdate, 50)

	go func() {
		result, err := m.run(m.progressChan)
		m.result = result
		m.err = err
		close(m.runDone)
		close(m.progressChan)
	}()
}

// waitForProgress blocks on the next progress update, converting channel
// closure into run completion.
func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{}
		}
		return progressUpdateMsg(update)
	}
}
