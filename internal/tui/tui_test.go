// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"spectrum/internal/capture"
)

type fakeAnalyzer struct {
	frame   []float64
	updates int
	err     error
}

func (f *fakeAnalyzer) UpdateOutputs() error {
	f.updates++
	return f.err
}
func (f *fakeAnalyzer) BinCount() int               { return len(f.frame) }
func (f *fakeAnalyzer) Frequency(k int) float64     { return float64(k) * 1000 }
func (f *fakeAnalyzer) ReadFrame(dst []float64) int { return copy(dst, f.frame) }
func (f *fakeAnalyzer) SmoothedMax() float64        { return 0.5 }
func (f *fakeAnalyzer) CycleTime() time.Duration    { return 120 * time.Microsecond }
func (f *fakeAnalyzer) Cycles() uint64              { return uint64(f.updates) }

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func runes(s string) []rune { return []rune(s) }

func TestBarRows(t *testing.T) {
	tests := []struct {
		name   string
		frame  []float64
		peaks  []float64
		width  int
		height int
		want   []string
	}{
		{
			name:  "full and empty",
			frame: []float64{1, 0}, width: 2, height: 2,
			want: []string{"█ ", "█ "},
		},
		{
			name:  "partial cell",
			frame: []float64{0.5, 0.25}, width: 2, height: 1,
			want: []string{"▄▂"},
		},
		{
			name:  "folds bins by maximum",
			frame: []float64{0.1, 1, 0, 0}, width: 2, height: 1,
			want: []string{"█ "},
		},
		{
			name:  "clamps out of range",
			frame: []float64{2, -1}, width: 2, height: 1,
			want: []string{"█ "},
		},
		{
			name:  "peak marker above bar",
			frame: []float64{0.25}, peaks: []float64{0.9}, width: 1, height: 2,
			want: []string{"▔", "▄"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := barRows(tt.frame, tt.peaks, tt.width, tt.height)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBarRowsWidth(t *testing.T) {
	rows := barRows(make([]float64, 513), nil, 80, 3)
	for i, r := range rows {
		if n := len(runes(r)); n != 80 {
			t.Errorf("row %d has %d columns, want 80", i, n)
		}
	}
}

func TestSpectrumModelTick(t *testing.T) {
	a := &fakeAnalyzer{frame: make([]float64, 40)}
	a.frame[1] = 0.8
	var m tea.Model = NewSpectrumModel(a, "test", time.Millisecond)

	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	m, cmd := m.Update(tickMsg(time.Now()))
	if a.updates != 1 {
		t.Fatalf("UpdateOutputs called %d times, want 1", a.updates)
	}
	if cmd == nil {
		t.Fatal("tick did not schedule the next tick")
	}
	sm := m.(SpectrumModel)
	if sm.frame[1] != 0.8 || sm.peaks[1] != 0.8 {
		t.Errorf("frame/peaks not updated: %v %v", sm.frame, sm.peaks)
	}

	// Peaks decay once the signal drops.
	a.frame = make([]float64, 40)
	m, _ = m.Update(tickMsg(time.Now()))
	sm = m.(SpectrumModel)
	if got, want := sm.peaks[1], 0.8*peakDecay; got != want {
		t.Errorf("peak = %v, want %v", got, want)
	}

	view := m.View()
	for _, want := range []string{"test", "0Hz", "39.0kHz", "cycles 2", "smoothed max 0.5000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSpectrumModelPause(t *testing.T) {
	a := &fakeAnalyzer{frame: []float64{0.5}}
	var m tea.Model = NewSpectrumModel(a, "test", time.Millisecond)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m, cmd := m.Update(tickMsg(time.Now()))
	if a.updates != 0 {
		t.Error("paused view updated the engine")
	}
	if cmd == nil {
		t.Error("paused view stopped ticking")
	}
	if !m.(SpectrumModel).paused {
		t.Error("model not paused")
	}
}

func TestSpectrumModelQuit(t *testing.T) {
	a := &fakeAnalyzer{frame: []float64{0.5}}
	m := NewSpectrumModel(a, "test", time.Millisecond)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); !isQuit(cmd) {
		t.Error("q did not quit")
	}
}

func TestSpectrumModelEngineError(t *testing.T) {
	a := &fakeAnalyzer{frame: []float64{0.5}, err: errors.New("wrong mode")}
	m := NewSpectrumModel(a, "test", time.Millisecond)
	next, cmd := m.Update(tickMsg(time.Now()))
	if !isQuit(cmd) {
		t.Error("engine error did not quit")
	}
	if err := next.(SpectrumModel).Err(); err == nil || err.Error() != "wrong mode" {
		t.Errorf("Err() = %v", err)
	}
}

func TestFormatHz(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0Hz"},
		{999.6, "1000Hz"},
		{1000, "1.0kHz"},
		{23987, "24.0kHz"},
	}
	for _, tt := range tests {
		if got := formatHz(tt.in); got != tt.want {
			t.Errorf("formatHz(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testDevices() ([]capture.Device, error) {
	return []capture.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
		{ID: 2, Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
	}, nil
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDevicePickerSelection(t *testing.T) {
	dm := NewDeviceListModel(testDevices)
	msg := dm.Init()()
	devs, ok := msg.(devicesMsg)
	if !ok {
		t.Fatalf("Init produced %T", msg)
	}
	if len(devs.devices) != 2 {
		t.Fatalf("got %d input devices, want 2", len(devs.devices))
	}

	var m tea.Model = dm
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	m, _ = m.Update(devs)
	if !strings.Contains(m.View(), "Built-in Mic") {
		t.Errorf("list view missing device:\n%s", m.View())
	}

	m, _ = m.Update(press("down"))
	m, _ = m.Update(press("down")) // stays on the last device
	m, _ = m.Update(press("enter"))
	if m.(DeviceListModel).activeScreen != ConfigScreen {
		t.Fatal("enter did not open the config screen")
	}
	if got := m.(DeviceListModel).sampleRateIndex; sampleRates[got] != 96000 {
		t.Errorf("default rate = %v, want 96000", sampleRates[got])
	}

	m, _ = m.Update(press("up"))
	m, cmd := m.Update(press("enter"))
	if !isQuit(cmd) {
		t.Error("choosing a rate did not quit")
	}
	sel := m.(DeviceListModel).Selection()
	if !sel.Ok || sel.Device.ID != 2 || sel.SampleRate != 88200 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestDevicePickerBackAndQuit(t *testing.T) {
	var m tea.Model = NewDeviceListModel(testDevices)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	m, _ = m.Update(devicesMsg{devices: []capture.Device{{ID: 1, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 44100}}})
	m, _ = m.Update(press("enter"))
	m, _ = m.Update(press("esc"))
	if m.(DeviceListModel).activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}
	m, cmd := m.Update(press("q"))
	if !isQuit(cmd) {
		t.Error("q did not quit")
	}
	if m.(DeviceListModel).Selection().Ok {
		t.Error("quitting produced a selection")
	}
}

func TestDevicePickerError(t *testing.T) {
	dm := NewDeviceListModel(func() ([]capture.Device, error) { return nil, errors.New("no portaudio") })
	m, cmd := dm.Update(dm.Init()())
	if !isQuit(cmd) {
		t.Error("enumeration error did not quit")
	}
	if m.(DeviceListModel).Err() == nil {
		t.Error("error not recorded")
	}
}

func TestNearestRate(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{44100, 44100},
		{47000, 48000},
		{192000, 96000},
		{0, 44100},
	}
	for _, tt := range tests {
		if got := sampleRates[nearestRate(tt.in)]; got != tt.want {
			t.Errorf("nearestRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
