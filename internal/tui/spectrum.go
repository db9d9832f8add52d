// SPDX-License-Identifier: MIT

// Package tui renders the spectrum in the terminal. The view owns the
// analysis clock: on every tick it asks an externally driven engine to
// update and then draws the frame it produced.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	DefaultFrameInterval = 33 * time.Millisecond
	peakDecay            = 0.97
	chromeLines          = 6 // title, blank, axis, stats, blank, help
	minBarRows           = 4
)

// Eighth blocks, index = filled eighths of a cell.
var blocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

const peakMark = "▔"

var (
	lowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	midStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C547"))
	highStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5533D"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7D7D"))
)

// Analyzer is the part of the spectral engine the view drives.
type Analyzer interface {
	UpdateOutputs() error
	BinCount() int
	Frequency(k int) float64
	ReadFrame(dst []float64) int
	SmoothedMax() float64
	CycleTime() time.Duration
	Cycles() uint64
}

type keyMap struct {
	Pause key.Binding
	Peaks key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Pause, k.Peaks, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Pause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
	Peaks: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "peak hold")),
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// SpectrumModel is the Bubble Tea model of the live spectrum.
type SpectrumModel struct {
	analyzer Analyzer
	interval time.Duration
	title    string
	help     help.Model

	frame []float64
	peaks []float64

	holdPeaks bool
	paused    bool
	width     int
	height    int
	err       error
}

// NewSpectrumModel builds a view that updates analyzer every interval.
func NewSpectrumModel(analyzer Analyzer, title string, interval time.Duration) SpectrumModel {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	n := analyzer.BinCount()
	return SpectrumModel{
		analyzer:  analyzer,
		interval:  interval,
		title:     title,
		help:      help.New(),
		frame:     make([]float64, n),
		peaks:     make([]float64, n),
		holdPeaks: true,
	}
}

func (m SpectrumModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m SpectrumModel) Init() tea.Cmd {
	return m.tick()
}

func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		if m.paused {
			return m, m.tick()
		}
		if err := m.analyzer.UpdateOutputs(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		n := m.analyzer.ReadFrame(m.frame)
		for i, v := range m.frame[:n] {
			m.peaks[i] = math.Max(v, m.peaks[i]*peakDecay)
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, keys.Peaks):
			m.holdPeaks = !m.holdPeaks
			clear(m.peaks)
		}
	}
	return m, nil
}

// Err returns the error that ended the program, if any.
func (m SpectrumModel) Err() error { return m.err }

func (m SpectrumModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	if m.width == 0 {
		return "Initializing..."
	}

	rows := max(m.height-chromeLines, minBarRows)
	var peaks []float64
	if m.holdPeaks {
		peaks = m.peaks
	}
	bars := barRows(m.frame, peaks, m.width, rows)

	var sb strings.Builder
	status := ""
	if m.paused {
		status = " (paused)"
	}
	sb.WriteString(titleStyle.Render(m.title + status))
	sb.WriteString("\n\n")
	for r, line := range bars {
		sb.WriteString(rowStyle(r, rows).Render(line))
		sb.WriteByte('\n')
	}
	sb.WriteString(dimStyle.Render(m.axis(min(m.width, len(m.frame)))))
	sb.WriteByte('\n')
	sb.WriteString(infoStyle.Render(fmt.Sprintf("cycles %d  cycle %s  smoothed max %.4f",
		m.analyzer.Cycles(), m.analyzer.CycleTime().Round(time.Microsecond), m.analyzer.SmoothedMax())))
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

// axis labels the lowest and highest centre frequency under the bars.
func (m SpectrumModel) axis(width int) string {
	n := m.analyzer.BinCount()
	if n == 0 || width == 0 {
		return ""
	}
	lo := formatHz(m.analyzer.Frequency(0))
	hi := formatHz(m.analyzer.Frequency(n - 1))
	gap := width - len(lo) - len(hi)
	if gap < 1 {
		return lo
	}
	return lo + strings.Repeat(" ", gap) + hi
}

func formatHz(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%.1fkHz", f/1000)
	}
	return fmt.Sprintf("%.0fHz", f)
}

func rowStyle(r, rows int) lipgloss.Style {
	switch {
	case r < rows/4:
		return highStyle
	case r < rows/2:
		return midStyle
	default:
		return lowStyle
	}
}

// barRows draws frame as vertical bars, top row first. Bins are folded into
// at most width columns by taking the maximum. A non-nil peaks slice adds a
// hold marker above each bar.
func barRows(frame, peaks []float64, width, height int) []string {
	cols := min(width, len(frame))
	lines := make([]strings.Builder, height)
	for c := range cols {
		lo, hi := c*len(frame)/cols, (c+1)*len(frame)/cols
		v, p := 0.0, 0.0
		for i := lo; i < hi; i++ {
			v = math.Max(v, frame[i])
			if peaks != nil {
				p = math.Max(p, peaks[i])
			}
		}
		filled := int(math.Round(clampUnit(v) * float64(height*8)))
		peakRow := -1
		if peaks != nil && p > 0 {
			peakRow = min(int(clampUnit(p)*float64(height)), height-1)
		}

		for r := range height {
			level := height - 1 - r
			cell := filled - level*8
			switch {
			case cell >= 8:
				lines[r].WriteString(blocks[8])
			case cell > 0:
				lines[r].WriteString(blocks[cell])
			case level == peakRow:
				lines[r].WriteString(peakMark)
			default:
				lines[r].WriteString(blocks[0])
			}
		}
	}

	out := make([]string, height)
	for r := range lines {
		out[r] = lines[r].String()
	}
	return out
}

func clampUnit(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// RunSpectrum runs the view until the user quits.
func RunSpectrum(analyzer Analyzer, title string, interval time.Duration) error {
	p := tea.NewProgram(NewSpectrumModel(analyzer, title, interval), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(SpectrumModel); ok {
		return m.Err()
	}
	return nil
}
