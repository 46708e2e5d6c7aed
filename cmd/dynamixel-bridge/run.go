package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/l3xz/dynamixel-bridge/pkg/bridge"
	"github.com/l3xz/dynamixel-bridge/pkg/robot"
)

type RunCommand struct {
	Hz   int     `long:"hz" description:"Control loop frequency (defaults to the configured hz)"`
	Step float64 `long:"step" default:"5" description:"Degrees per arrow key press"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const (
	panSeries  = "pan"
	tiltSeries = "tilt"
)

var seriesColors = map[string]string{
	panSeries:  "208", // orange
	tiltSeries: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	ctrl     *bridge.Controller
	chart    *streamlinechart.Model
	step     float64
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool

	state     bridge.State
	target    bridge.HeadTarget
	hasTarget bool // target is seeded from the first good snapshot
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg bridge.State
type logMsg string

func waitForState(ctrl *bridge.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *bridge.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(ctrl *bridge.Controller, step float64) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-180, 180),
	)

	for _, name := range []string{panSeries, tiltSeries} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		ctrl:  ctrl,
		chart: &chart,
		step:  step,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "left":
			m.nudge(-m.step, 0)
		case "right":
			m.nudge(m.step, 0)
		case "up":
			m.nudge(0, m.step)
		case "down":
			m.nudge(0, -m.step)
		case "c":
			m.target.PanDeg, m.target.TiltDeg = 180, 180
			m.hasTarget = true
			m.ctrl.SetHeadTarget(m.target)
		}
		return m, nil

	case stateMsg:
		state := bridge.State(msg)
		m.state = state
		if state.Error == nil {
			if !m.hasTarget {
				m.target.PanDeg, m.target.TiltDeg = state.Pan, state.Tilt
				m.hasTarget = true
			}
			m.chart.PushDataSet(panSeries, state.Pan)
			m.chart.PushDataSet(tiltSeries, state.Tilt)
			m.chart.DrawAll()
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

// nudge moves the head target relative to its current value.
func (m *runModel) nudge(dPan, dTilt float64) {
	if !m.hasTarget {
		return
	}
	m.target.PanDeg += dPan
	m.target.TiltDeg += dTilt
	m.ctrl.SetHeadTarget(m.target)
}

func (m runModel) View() string {
	if m.quitting {
		return "Bridge stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("L3XZ Dynamixel Bridge"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.hasTarget {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  pan %.1f° tilt %.1f° → %.1f° / %.1f°",
			m.state.Pan, m.state.Tilt, m.target.PanDeg, m.target.TiltDeg)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Arrows move the head, 'c' centers it, 'q' quits")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range []string{panSeries, tiltSeries} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'dynamixel-bridge setup' first.")
		os.Exit(1)
	}

	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	r, err := robot.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open robot: %v", err)
	}
	defer r.Close()

	hz := c.Hz
	if hz == 0 {
		hz = cfg.Hz
	}
	ctrl := bridge.NewController(r, bridge.Config{Hz: hz})

	// Start controller in background
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Controller error: %v", err)
		}
	}()

	// Run TUI
	p := tea.NewProgram(initialRunModel(ctrl, c.Step), tea.WithAltScreen())
	_, err = p.Run()

	// Let the controller release torque before the bus closes
	cancel()
	<-done

	if err != nil {
		log.Fatalf("Error running program: %v", err)
	}
	return nil
}
