// Package wizard is the interactive front end: a bubbletea model that shows
// one form per step, runs the step's runner in the background and hands
// confirmed results to the workflow controller.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"breathplat/cmd/breathplat/ui"
	"breathplat/internal/analysis"
	"breathplat/internal/dataset"
	"breathplat/internal/logging"
	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// Options configures a wizard Model.
type Options struct {
	Controller *workflow.Controller
	Runners    []steps.Runner
	Files      *dataset.Store // for dataset previews; optional
	Styles     ui.Styles
	WordWrap   int

	// Optional background sources.
	Watcher  *dataset.Watcher
	Services *analysis.Client
	Check    []string // services checked at startup

	// DataFiles is the initial data directory listing.
	DataFiles []string
}

// Model is the wizard's bubbletea model.
type Model struct {
	ctx      context.Context
	ctl      *workflow.Controller
	runners  []steps.Runner
	files    *dataset.Store
	forms    []*stepForm
	styles   ui.Styles
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	wordWrap int

	watcher  *dataset.Watcher
	services *analysis.Client
	check    []string

	dataFiles []string
	health    []analysis.HealthStatus

	width    int
	height   int
	quitting bool
}

// New creates the wizard. The runner list must match the controller's steps.
func New(ctx context.Context, opts Options) (Model, error) {
	if opts.Controller == nil {
		return Model{}, errors.New("wizard needs a controller")
	}
	if len(opts.Runners) != opts.Controller.Len() {
		return Model{}, fmt.Errorf("%d runners for %d steps", len(opts.Runners), opts.Controller.Len())
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = opts.Styles.Spinner

	vp := viewport.New(opts.WordWrap, 12)

	m := Model{
		ctx:       ctx,
		ctl:       opts.Controller,
		runners:   opts.Runners,
		files:     opts.Files,
		forms:     make([]*stepForm, len(opts.Runners)),
		styles:    opts.Styles,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   s,
		viewport:  vp,
		wordWrap:  opts.WordWrap,
		watcher:   opts.Watcher,
		services:  opts.Services,
		check:     opts.Check,
		dataFiles: opts.DataFiles,
	}
	for i, r := range opts.Runners {
		m.forms[i] = newStepForm(r, opts.Styles)
	}
	m.renderer = newRenderer(opts.Styles.Theme.IsDark, opts.WordWrap)
	m.refreshContent()
	return m, nil
}

// newRenderer uses a fixed glamour style; auto-detection would query the
// terminal.
func newRenderer(dark bool, width int) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.Get(logging.CategoryUI).Warn("failed to create markdown renderer", zap.Error(err))
		return nil
	}
	return r
}

// Init starts the background sources.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.watcher != nil {
		cmds = append(cmds, waitForFiles(m.watcher))
	}
	if m.services != nil && len(m.check) > 0 {
		cmds = append(cmds, checkServices(m.ctx, m.services, m.check))
	}
	return tea.Batch(cmds...)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		wrap := min(m.wordWrap, max(msg.Width-4, 20))
		m.viewport.Width = wrap
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 5)
		m.renderer = newRenderer(m.styles.Theme.IsDark, wrap)
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case runDoneMsg:
		m.handleRunDone(msg)
		return m, nil

	case completeMsg:
		m.ctl.CompleteStep(msg.step, msg.result)
		m.refreshContent()
		if m.ctl.Finished() {
			logging.Get(logging.CategoryUI).Info("workflow finished")
		}
		return m, nil

	case filesMsg:
		m.dataFiles = []string(msg)
		if m.watcher == nil {
			return m, nil
		}
		return m, waitForFiles(m.watcher)

	case healthMsg:
		m.health = []analysis.HealthStatus(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cur := m.ctl.Current()
	form := m.forms[cur]

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Run):
		if form.loading {
			return m, nil
		}
		return m, m.startRun(cur)

	case key.Matches(msg, m.keys.Continue):
		if form.loading || form.result == nil {
			return m, nil
		}
		return m, complete(cur, form.result)

	case key.Matches(msg, m.keys.Skip):
		m.ctl.SkipStep()
		m.refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.ctl.GoBack()
		m.refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.GoTo):
		m.ctl.GoToStep(gotoIndex(msg.String()))
		m.refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		form.setFocus(form.focus + 1)
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		form.setFocus(form.focus - 1)
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		form.alert = ""
		return m, nil

	case key.Matches(msg, m.keys.Scroll):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if form.loading {
		return m, nil
	}
	return m, form.updateFocused(msg)
}

// startRun snapshots the inputs of step i and runs it in the background.
func (m Model) startRun(i int) tea.Cmd {
	form := m.forms[i]
	gen := form.startRun()
	in := steps.Input{Data: m.ctl.Inputs(i), Values: form.values()}
	logging.Get(logging.CategoryUI).Debug("step run started",
		zap.String("step", m.runners[i].Name()),
		zap.Int("gen", gen))
	return runStep(m.ctx, m.runners[i], i, gen, in)
}

func (m *Model) handleRunDone(msg runDoneMsg) {
	if msg.step < 0 || msg.step >= len(m.forms) {
		return
	}
	form := m.forms[msg.step]
	if msg.gen != form.gen {
		// superseded by a newer run
		return
	}
	form.loading = false

	if msg.err != nil {
		// a failed rerun must not leave the earlier result confirmable
		form.result = nil
		var verr *steps.ValidationError
		if errors.As(msg.err, &verr) {
			form.fieldErrs[verr.Field] = verr.Reason
		} else {
			form.alert = msg.err.Error()
		}
		logging.Get(logging.CategoryUI).Info("step run failed",
			zap.String("step", m.runners[msg.step].Name()),
			zap.Error(msg.err))
		if msg.step == m.ctl.Current() {
			m.refreshContent()
		}
		return
	}
	form.result = msg.result
	if msg.step == m.ctl.Current() {
		m.refreshContent()
	}
}

// refreshContent renders the current step's result into the viewport: the
// unconfirmed result of the last run, else the confirmed one.
func (m *Model) refreshContent() {
	cur := m.ctl.Current()
	res := m.forms[cur].result
	if res == nil {
		res, _ = m.ctl.Data().Get(m.ctl.CurrentStep().Key())
	}
	if res == nil {
		m.viewport.SetContent(m.styles.Muted.Render("Fill in the form and run the step."))
		return
	}
	md := steps.Describe(res)
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			md = out
		}
	}
	m.viewport.SetContent(md)
	m.viewport.GotoTop()
}

// chromeHeight estimates the lines around the result viewport.
func (m Model) chromeHeight() int {
	return 8 + 3*len(m.forms[m.ctl.Current()].fields)
}

// Controller returns the workflow controller.
func (m Model) Controller() *workflow.Controller { return m.ctl }
