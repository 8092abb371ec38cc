package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/densemap/pkg/densemap/broadcast"
	"github.com/jamesainslie/densemap/pkg/densemap/engine"
	"github.com/jamesainslie/densemap/pkg/densemap/export"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// AppState represents the current phase of the viewer.
type AppState int

const (
	StateFirstPass AppState = iota
	StateRefining
	StateQuitting
)

// Options configures the TUI application.
type Options struct {
	// Engine is the session configuration. Run forces Persistent on so
	// the grid keeps refining while the viewer is open.
	Engine engine.Options

	// Out, when set, receives a PNG snapshot of the grid on exit.
	Out string

	// CellSize scales the exported snapshot.
	CellSize int
}

// Model is the main Bubble Tea model for the densemap viewer.
type Model struct {
	options  Options
	session  *engine.Session
	sub      *broadcast.Subscriber
	fileSize int64

	state     AppState
	spin      spinner.Model
	bar       progress.Model
	startTime time.Time

	sampled int
	total   int

	lastEvent types.SampleEvent
	haveEvent bool

	width  int
	height int
}

// NewModel creates a viewer model bound to an already started session.
func NewModel(opts Options, session *engine.Session, fileSize int64) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	bar := progress.New(progress.WithGradient("#8E1616", "#FF6363"))

	return Model{
		options:   opts,
		session:   session,
		sub:       session.Subscribe(0),
		fileSize:  fileSize,
		state:     StateFirstPass,
		spin:      s,
		bar:       bar,
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.tickUI(), m.waitFirstPass())
}

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// firstPassMsg fires once every grid cell has been sampled.
type firstPassMsg struct{}

// tickUI returns a command that periodically triggers UI updates.
func (m Model) tickUI() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// waitFirstPass returns a command that blocks until the first pass
// barrier releases.
func (m Model) waitFirstPass() tea.Cmd {
	done := m.session.FirstPassDone()
	return func() tea.Msg {
		<-done
		return firstPassMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.state = StateQuitting
			return m, tea.Quit
		}
		return m, nil

	case tickUIMsg:
		m.drainEvents()
		m.sampled, m.total = m.session.Progress()
		return m, m.tickUI()

	case firstPassMsg:
		if m.state == StateFirstPass {
			m.state = StateRefining
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// drainEvents empties the subscriber channel without blocking, keeping
// only the most recent sample for the detail line.
func (m *Model) drainEvents() {
	if m.sub == nil {
		return
	}
	for {
		select {
		case ev, ok := <-m.sub.Events:
			if !ok {
				m.sub = nil
				return
			}
			m.lastEvent = ev
			m.haveEvent = true
		default:
			return
		}
	}
}

// View renders the viewer.
func (m Model) View() string {
	if m.state == StateQuitting {
		return ""
	}

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	geom := m.session.Options().Geometry
	sampleBytes := m.session.Options().SampleBytes
	gridLines := m.height - 10
	if gridLines < 4 {
		gridLines = 4
	}
	b.WriteString(m.indent(renderGrid(m.session.Aggregator().Snapshot(), geom, sampleBytes, contentWidth-2, gridLines)))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderDetail())
	b.WriteString("\n\n")
	b.WriteString(mutedTextStyle.Render("  q quit"))
	b.WriteString("\n")

	return outerBoxStyle.Width(contentWidth).Render(b.String())
}

// renderHeader renders the title line with file name, size and grid
// geometry.
func (m Model) renderHeader() string {
	name := filepath.Base(m.session.Options().Path)
	geom := m.session.Options().Geometry

	title := titleStyle.Render("DENSEMAP")
	stats := mutedTextStyle.Render(fmt.Sprintf("  %s  •  %s  •  %s grid",
		name, humanize.IBytes(uint64(m.fileSize)), geom))

	header := fmt.Sprintf(" %s%s", title, stats)
	if m.state == StateRefining {
		header += successTextStyle.Render("  ● LIVE")
	}
	return header
}

// renderStatus renders the first pass progress bar, or the refinement
// counters once the grid is fully covered.
func (m Model) renderStatus(width int) string {
	switch m.state {
	case StateFirstPass:
		percent := 0.0
		if m.total > 0 {
			percent = float64(m.sampled) / float64(m.total)
		}
		bar := m.bar
		bar.Width = width - 20
		return fmt.Sprintf("  %s %s %d/%d",
			m.spin.View(), bar.ViewAs(percent), m.sampled, m.total)

	case StateRefining:
		elapsed := time.Since(m.startTime).Round(time.Second)
		return fmt.Sprintf("  %s refining  •  %s samples  •  %s",
			m.spin.View(),
			humanize.Comma(m.session.Aggregator().Samples()),
			elapsed)
	}
	return ""
}

// renderDetail renders the most recently observed sample.
func (m Model) renderDetail() string {
	if !m.haveEvent {
		return mutedTextStyle.Render("  waiting for samples...")
	}

	sampleBytes := m.session.Options().SampleBytes
	detail := fmt.Sprintf("  last sample (%d, %d)  score %d/%d",
		m.lastEvent.Coord.X, m.lastEvent.Coord.Y, m.lastEvent.Score, sampleBytes)

	if stats, ok := m.session.Aggregator().Cell(m.lastEvent.Coord); ok {
		detail += mutedTextStyle.Render(fmt.Sprintf("  •  cell avg %.2f over %d",
			stats.Average(), stats.Count))
	}
	return detail
}

// indent prefixes every line of a block with two spaces.
func (m Model) indent(block string) string {
	if block == "" {
		return block
	}
	return "  " + strings.ReplaceAll(block, "\n", "\n  ")
}

// Run starts the session and drives the viewer until the user quits,
// then writes the optional PNG snapshot.
func Run(opts Options) error {
	opts.Engine.Persistent = true

	info, err := os.Stat(opts.Engine.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrOpen, opts.Engine.Path, err)
	}

	session, err := engine.NewSession(opts.Engine)
	if err != nil {
		return err
	}
	if err := session.Start(context.Background()); err != nil {
		return err
	}
	defer session.Stop()

	model := NewModel(opts, session, info.Size())
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	if opts.Out == "" {
		return nil
	}

	img := export.RenderImage(session.Aggregator().Snapshot(),
		session.Options().Geometry, session.Options().SampleBytes)
	scaled := export.Scale(img, opts.CellSize)
	if err := export.WritePNG(opts.Out, scaled); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", opts.Out)
	return nil
}
