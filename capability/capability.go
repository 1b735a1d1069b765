// Package capability implements the sensor/ISP control surface: a table of
// named, clamped, float-valued capabilities built from a V4L2 control info
// map, with listener replay-on-attach semantics.
package capability

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/octowatch/videoservice/v4l2"
)

// ValueType records the underlying driver value type a Capability was
// materialized from, so setValue can down-convert the float surface back to
// the type the driver control list expects.
type ValueType int

const (
	TypeBool ValueType = iota
	TypeByte
	TypeInt32
	TypeInt64
	TypeFloat
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeByte:
		return "byte"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// typeFromCtrl maps a v4l2.CtrlType to the supported ValueType set, and
// reports false for any control type the table does not materialize a
// Capability for (e.g. menus, buttons, strings).
func typeFromCtrl(t v4l2.CtrlType) (ValueType, bool) {
	switch t {
	case v4l2.CtrlTypeBool:
		return TypeBool, true
	case v4l2.CtrlTypeU8:
		return TypeByte, true
	case v4l2.CtrlTypeInt:
		return TypeInt32, true
	case v4l2.CtrlTypeInt64:
		return TypeInt64, true
	default:
		return 0, false
	}
}

// Capability is one sensor/ISP control exposed as a uniform float surface
// regardless of its underlying driver type.
type Capability struct {
	ID      uint32
	Name    string
	Type    ValueType
	Min     float64
	Max     float64
	Default float64
	Current float64
}

func (c Capability) String() string {
	return fmt.Sprintf("%s [type=%s, minimum=%v, maximum=%v, default=%v, current=%v]",
		c.Name, c.Type, c.Min, c.Max, c.Default, c.Current)
}

// ErrUnknownCapability is returned by SetValue when no capability matches
// the requested name (case-insensitive).
var ErrUnknownCapability = fmt.Errorf("unknown capability")

// ErrOutOfRange is returned by SetValue when the requested value falls
// outside [Min, Max].
var ErrOutOfRange = fmt.Errorf("value out of range")

// Listener receives capability-table and current-value snapshots. Attaching
// a listener (via Table.SetListener) immediately replays both so that late
// subscribers catch up, matching CameraCapabilities::setListener.
type Listener interface {
	OnCapabilitiesChanged(all map[string]Capability)
	OnCurrentValuesChanged(current map[string]float64)
}

// ControlSink receives the one-entry, down-converted driver control list
// produced by a successful SetValue call. The camera pipeline implements
// this to route the control into its pending-controls list.
type ControlSink interface {
	ApplyControl(id uint32, value v4l2.CtrlValue) error
}

// Table is the sensor/ISP capability table: built once from a control-info
// source, mutated only through SetValue, and observed through at most one
// Listener.
type Table struct {
	mu           sync.Mutex
	byLowerName  map[string]*Capability
	order        []string // lower-cased names, sorted, for deterministic iteration
	sink         ControlSink
	listener     Listener
	log          zerolog.Logger
}

// ControlInfo is the minimal per-control data the table needs to decide
// whether to materialize a Capability, mirroring the fields
// CameraCapabilities reads off libcamera::ControlInfo / here, off
// v4l2.Control.
type ControlInfo struct {
	ID      uint32
	Name    string
	Type    v4l2.CtrlType
	Min     int32
	Max     int32
	Default int32
}

// New builds a Table from a set of discovered controls, skipping any entry
// whose type is unsupported. ControlInfo always carries min/max/default as
// plain int32 fields, so no entry is skipped for lacking them; the type
// check is the only filter applied here.
func New(controls []ControlInfo, sink ControlSink, log zerolog.Logger) *Table {
	t := &Table{
		byLowerName: make(map[string]*Capability),
		sink:        sink,
		log:         log,
	}

	for _, c := range controls {
		vt, ok := typeFromCtrl(c.Type)
		if !ok {
			log.Debug().Str("name", c.Name).Str("type", fmt.Sprint(c.Type)).Msg("skipping unsupported control type")
			continue
		}
		cap := &Capability{
			ID:      c.ID,
			Name:    c.Name,
			Type:    vt,
			Min:     float64(c.Min),
			Max:     float64(c.Max),
			Default: float64(c.Default),
			Current: float64(c.Default),
		}
		key := strings.ToLower(c.Name)
		t.byLowerName[key] = cap
		t.order = append(t.order, key)
		log.Info().Str("capability", cap.String()).Msg("available capability")
	}
	sort.Strings(t.order)

	return t
}

// SetListener stores the reference and immediately replays the full table
// and current values so a newly attached listener does not miss state that
// changed before it subscribed.
func (t *Table) SetListener(l Listener) {
	t.mu.Lock()
	t.listener = l
	all := t.snapshotAllLocked()
	current := t.snapshotCurrentLocked()
	t.mu.Unlock()

	l.OnCapabilitiesChanged(all)
	l.OnCurrentValuesChanged(current)
}

// SetValue applies a new value for the named capability (case-insensitive),
// rejecting it with ErrOutOfRange if it lies outside [Min, Max], and
// down-converting it to the capability's original driver type before
// handing it to the ControlSink. notifyListener controls whether
// OnCurrentValuesChanged fires after a successful application.
func (t *Table) SetValue(name string, value float64, notifyListener bool) error {
	key := strings.ToLower(name)

	t.mu.Lock()
	cap, ok := t.byLowerName[key]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	if value < cap.Min || value > cap.Max {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s: %v not in [%v, %v]", ErrOutOfRange, name, value, cap.Min, cap.Max)
	}

	driverValue := downConvert(cap.Type, value)
	if err := t.sink.ApplyControl(cap.ID, driverValue); err != nil {
		t.mu.Unlock()
		return fmt.Errorf("apply control %s: %w", name, err)
	}
	cap.Current = value
	var current map[string]float64
	listener := t.listener
	if notifyListener && listener != nil {
		current = t.snapshotCurrentLocked()
	}
	t.mu.Unlock()

	if current != nil {
		listener.OnCurrentValuesChanged(current)
	}
	return nil
}

// Get returns a copy of the named capability (case-insensitive) and whether
// it exists.
func (t *Table) Get(name string) (Capability, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cap, ok := t.byLowerName[strings.ToLower(name)]
	if !ok {
		return Capability{}, false
	}
	return *cap, true
}

// All returns a name-keyed snapshot of every capability in the table.
func (t *Table) All() map[string]Capability {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotAllLocked()
}

func (t *Table) snapshotAllLocked() map[string]Capability {
	all := make(map[string]Capability, len(t.byLowerName))
	for _, key := range t.order {
		cap := t.byLowerName[key]
		all[cap.Name] = *cap
	}
	return all
}

func (t *Table) snapshotCurrentLocked() map[string]float64 {
	current := make(map[string]float64, len(t.byLowerName))
	for _, key := range t.order {
		cap := t.byLowerName[key]
		current[cap.Name] = cap.Current
	}
	return current
}

func downConvert(t ValueType, value float64) v4l2.CtrlValue {
	switch t {
	case TypeBool:
		if value != 0 {
			return 1
		}
		return 0
	case TypeByte, TypeInt32, TypeInt64, TypeFloat:
		return v4l2.CtrlValue(int32(value))
	default:
		return v4l2.CtrlValue(int32(value))
	}
}
