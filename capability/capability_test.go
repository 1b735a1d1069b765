package capability

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/v4l2"
)

type fakeSink struct {
	lastID    uint32
	lastValue v4l2.CtrlValue
	calls     int
}

func (f *fakeSink) ApplyControl(id uint32, value v4l2.CtrlValue) error {
	f.lastID = id
	f.lastValue = value
	f.calls++
	return nil
}

type fakeListener struct {
	capsCalls    int
	valuesCalls  int
	lastCaps     map[string]Capability
	lastValues   map[string]float64
}

func (f *fakeListener) OnCapabilitiesChanged(all map[string]Capability) {
	f.capsCalls++
	f.lastCaps = all
}

func (f *fakeListener) OnCurrentValuesChanged(current map[string]float64) {
	f.valuesCalls++
	f.lastValues = current
}

func newTestTable(sink ControlSink) *Table {
	controls := []ControlInfo{
		{ID: 1, Name: "Brightness", Type: v4l2.CtrlTypeInt, Min: -1, Max: 1, Default: 0},
		{ID: 2, Name: "AutoFocus", Type: v4l2.CtrlTypeBool, Min: 0, Max: 1, Default: 0},
		{ID: 3, Name: "Unsupported", Type: v4l2.CtrlTypeMenu, Min: 0, Max: 3, Default: 0},
	}
	return New(controls, sink, zerolog.Nop())
}

func TestNewSkipsUnsupportedTypes(t *testing.T) {
	table := newTestTable(&fakeSink{})
	if _, ok := table.Get("Unsupported"); ok {
		t.Fatal("menu-typed control should have been skipped")
	}
	if _, ok := table.Get("Brightness"); !ok {
		t.Fatal("expected Brightness capability")
	}
}

func TestSetValueCaseInsensitive(t *testing.T) {
	sink := &fakeSink{}
	table := newTestTable(sink)

	if err := table.SetValue("bRiGhTnEsS", 0.2, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cap, _ := table.Get("Brightness")
	if cap.Current != 0.2 {
		t.Fatalf("expected current=0.2, got %v", cap.Current)
	}
	if sink.calls != 1 || sink.lastID != 1 {
		t.Fatalf("expected sink called once for id 1, got calls=%d id=%d", sink.calls, sink.lastID)
	}
}

func TestSetValueUnknownCapability(t *testing.T) {
	table := newTestTable(&fakeSink{})
	err := table.SetValue("Nope", 1, false)
	if !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
}

func TestSetValueOutOfRangeLeavesStateUnchanged(t *testing.T) {
	sink := &fakeSink{}
	table := newTestTable(sink)

	err := table.SetValue("Brightness", 5, false)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	cap, _ := table.Get("Brightness")
	if cap.Current != 0 {
		t.Fatalf("expected current to remain at default 0, got %v", cap.Current)
	}
	if sink.calls != 0 {
		t.Fatalf("sink should not have been called, got %d calls", sink.calls)
	}
}

func TestSetValueBoundaries(t *testing.T) {
	table := newTestTable(&fakeSink{})

	if err := table.SetValue("Brightness", -1, false); err != nil {
		t.Fatalf("min boundary should succeed: %v", err)
	}
	if err := table.SetValue("Brightness", 1, false); err != nil {
		t.Fatalf("max boundary should succeed: %v", err)
	}
	if err := table.SetValue("Brightness", -1.0001, false); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range below minimum, got %v", err)
	}
	if err := table.SetValue("Brightness", 1.0001, false); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range above maximum, got %v", err)
	}
}

func TestSetListenerReplaysImmediately(t *testing.T) {
	table := newTestTable(&fakeSink{})
	listener := &fakeListener{}

	table.SetListener(listener)

	if listener.capsCalls != 1 || listener.valuesCalls != 1 {
		t.Fatalf("expected exactly one replay of each, got caps=%d values=%d", listener.capsCalls, listener.valuesCalls)
	}
	if _, ok := listener.lastCaps["Brightness"]; !ok {
		t.Fatal("expected Brightness in replayed capabilities")
	}
	if _, ok := listener.lastValues["Brightness"]; !ok {
		t.Fatal("expected Brightness in replayed current values")
	}
}

func TestSetValueNotifiesListenerExactlyOnce(t *testing.T) {
	table := newTestTable(&fakeSink{})
	listener := &fakeListener{}
	table.SetListener(listener) // consumes the initial replay

	if err := table.SetValue("Brightness", 0.5, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listener.valuesCalls != 2 {
		t.Fatalf("expected exactly one additional notification, got total %d", listener.valuesCalls)
	}
}

func TestSetValueSameAsCurrentStillNotifies(t *testing.T) {
	table := newTestTable(&fakeSink{})
	listener := &fakeListener{}
	table.SetListener(listener)

	if err := table.SetValue("Brightness", 0, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listener.valuesCalls != 2 {
		t.Fatalf("setting to the current value should still emit one notification, got %d", listener.valuesCalls)
	}
}
