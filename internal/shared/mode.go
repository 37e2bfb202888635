package shared

import "fmt"

// Mode is the interaction mode of an editable screen section.
type Mode int

const (
	ModeViewing Mode = iota
	ModeEditing
	ModeSaving
)

// ModeEvent drives Mode transitions.
type ModeEvent int

const (
	EventEdit ModeEvent = iota
	EventCancel
	EventSubmit
	EventSaved
	EventFailed
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeViewing:
		return "viewing"
	case ModeEditing:
		return "editing"
	case ModeSaving:
		return "saving"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// String implements fmt.Stringer.
func (e ModeEvent) String() string {
	switch e {
	case EventEdit:
		return "edit"
	case EventCancel:
		return "cancel"
	case EventSubmit:
		return "submit"
	case EventSaved:
		return "saved"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Next returns the mode after e. Saving is only reachable from Editing, and a
// failed save returns to Editing so the form can be resubmitted.
func (m Mode) Next(e ModeEvent) (Mode, error) {
	switch {
	case m == ModeViewing && e == EventEdit:
		return ModeEditing, nil
	case m == ModeEditing && e == EventCancel:
		return ModeViewing, nil
	case m == ModeEditing && e == EventSubmit:
		return ModeSaving, nil
	case m == ModeSaving && e == EventSaved:
		return ModeViewing, nil
	case m == ModeSaving && e == EventFailed:
		return ModeEditing, nil
	}
	return m, fmt.Errorf("mode: cannot %s while %s", e, m)
}

// Editable reports whether form inputs accept changes.
func (m Mode) Editable() bool {
	return m == ModeEditing
}
