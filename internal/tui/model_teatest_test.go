package tui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"
	"github.com/hylla/packgrid/internal/frozen"
)

// startTeatestModel runs the units grid in a teatest program and waits for the first render.
func startTeatestModel(t *testing.T, svc *fakeService) *teatest.TestModel {
	t.Helper()
	tm := teatest.NewTestModel(t, newTestModel(svc), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "UNIT_WARRIOR")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))
	return tm
}

// finalGridModel quits the program and returns the last model state.
func finalGridModel(t *testing.T, tm *teatest.TestModel) Model {
	t.Helper()
	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
	out := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second))
	final, ok := out.(Model)
	if !ok {
		t.Fatalf("expected final Model, got %T", out)
	}
	return final
}

// TestModelWithTeatest verifies the grid renders and quits.
func TestModelWithTeatest(t *testing.T) {
	tm := startTeatestModel(t, newFakeService(unitsTable(t)))
	m := finalGridModel(t, tm)
	if m.engine.RowCount() != 4 || m.table == nil || m.table.Name != "Units" {
		t.Fatalf("unexpected final grid state rows=%d", m.engine.RowCount())
	}
}

// TestModelWithTeatestFilterEmptyState verifies typed filters reach the engine and the empty state renders.
func TestModelWithTeatestFilterEmptyState(t *testing.T) {
	tm := startTeatestModel(t, newFakeService(unitsTable(t)))

	tm.Send(tea.KeyPressMsg{Code: '/', Text: "/"})
	for _, r := range "zzz" {
		tm.Send(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "no rows match")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: tea.KeyEscape})
	m := finalGridModel(t, tm)
	if m.engine.RowCount() != 0 {
		t.Fatalf("expected no visible rows, got %d", m.engine.RowCount())
	}
	if len(m.filters) != 1 || m.filters[0].rule.Pattern != "zzz" || m.filters[0].rule.Column != 0 {
		t.Fatalf("unexpected filter rows %#v", m.filters)
	}
}

// TestModelWithTeatestFreezeHandoff verifies freezing renders a status and the cursor crosses panes.
func TestModelWithTeatestFreezeHandoff(t *testing.T) {
	tm := startTeatestModel(t, newFakeService(unitsTable(t)))

	tm.Send(tea.KeyPressMsg{Code: 'f', Text: "f"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "froze key")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'l', Text: "l"})
	m := finalGridModel(t, tm)
	if got := m.ctrl.FrozenColumns(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected frozen [0], got %#v", got)
	}
	if m.ctrl.FocusedPane() != frozen.PanePrimary || m.ctrl.CurrentIndex().Column != 1 {
		t.Fatalf("expected cursor on primary column 1, got %s %#v", m.ctrl.FocusedPane(), m.ctrl.CurrentIndex())
	}
}

// TestModelWithTeatestHelpOverlay verifies the help overlay opens and closes.
func TestModelWithTeatestHelpOverlay(t *testing.T) {
	tm := startTeatestModel(t, newFakeService(unitsTable(t)))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "pass if blank")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: tea.KeyEscape})
	m := finalGridModel(t, tm)
	if m.mode != modeNone {
		t.Fatalf("expected help closed, mode=%d", m.mode)
	}
}
