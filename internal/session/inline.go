package session

import (
	"errors"

	"pagecms/internal/model"
)

// InlineState is the direct-manipulation editing state of one element.
//
// Transitions: Viewing → Editing → {Committing, Reverting} → Viewing.
// Committing and Reverting are transient; every public method returns with
// the editor in Viewing or Editing. No state survives a session restart.
type InlineState int

const (
	StateViewing InlineState = iota
	StateEditing
	stateCommitting
	stateReverting
)

func (s InlineState) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	case stateCommitting:
		return "committing"
	case stateReverting:
		return "reverting"
	default:
		return "unknown"
	}
}

// ErrNotEditing is returned when a draft or commit arrives outside Editing.
var ErrNotEditing = errors.New("session: inline editor is not in editing state")

// InlineEditor is the state machine behind in-place editing of a single
// addressed element. The activation gesture captures the original content;
// losing focus commits (proposing an edit only if something changed); the
// cancel gesture restores the original and commits nothing.
type InlineEditor struct {
	ctrl *Controller
	addr model.Address

	state    InlineState
	original string
	draft    string
}

// NewInlineEditor binds an editor to one address. The editor starts in
// Viewing.
func NewInlineEditor(ctrl *Controller, section, field string) *InlineEditor {
	return &InlineEditor{ctrl: ctrl, addr: model.Address{Section: section, Field: field}}
}

// State reports the current editing state.
func (e *InlineEditor) State() InlineState { return e.state }

// Begin is the activation gesture: capture the current content and make the
// element mutable. A Begin while already editing is a no-op (the element
// simply keeps focus).
func (e *InlineEditor) Begin() {
	if e.state == StateEditing {
		return
	}
	e.original = e.ctrl.model.Get(e.addr.Section, e.addr.Field)
	e.draft = e.original
	e.state = StateEditing
}

// SetDraft records the element's in-place content as the user types.
func (e *InlineEditor) SetDraft(content string) error {
	if e.state != StateEditing {
		return ErrNotEditing
	}
	e.draft = content
	return nil
}

// Commit is the focus-loss / commit gesture. If the draft differs from the
// captured original it is proposed through the guarded mutation path;
// otherwise nothing is proposed. The editor always lands back in Viewing.
func (e *InlineEditor) Commit() Outcome {
	if e.state != StateEditing {
		return OutcomeNoChange
	}
	e.state = stateCommitting
	defer func() { e.state = StateViewing }()

	if e.draft == e.original {
		return OutcomeNoChange
	}
	return e.ctrl.ProposeEdit(e.addr.Section, e.addr.Field, e.draft)
}

// Cancel is the cancel gesture: restore the captured original, then run the
// focus-loss path. Since the draft now equals the original, Commit proposes
// nothing.
func (e *InlineEditor) Cancel() Outcome {
	if e.state != StateEditing {
		return OutcomeNoChange
	}
	e.state = stateReverting
	e.draft = e.original
	e.state = StateEditing
	return e.Commit()
}
