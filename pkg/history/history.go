// Package history implements the transactional Edit History (spec.md
// C7): undo/redo over reversible Actions, with compound-transaction
// grouping and an optional capacity bound.
package history

import "edv/internal/ekind"

// Sentinel errors (spec.md §7).
var (
	ErrTransactionAlreadyActive = ekind.New(ekind.TransactionAlreadyActive, "transaction already active")
	ErrNoActiveTransaction      = ekind.New(ekind.NoActiveTransaction, "no active transaction")
	ErrNothingToUndo            = ekind.New(ekind.NothingToUndo, "nothing to undo")
	ErrNothingToRedo            = ekind.New(ekind.NothingToRedo, "nothing to redo")
)

// Transaction is an ordered sequence of actions committed or rolled
// back atomically.
type Transaction struct {
	Description string
	Actions     []Action
}

// entry is a History Entry: either a single action or a transaction.
type entry struct {
	single Action
	batch  *Transaction
}

func (e entry) actions() []Action {
	if e.batch != nil {
		return e.batch.Actions
	}
	return []Action{e.single}
}

// History holds the undo/redo stacks and any in-progress transaction.
type History struct {
	undoStack []entry
	redoStack []entry
	current   *Transaction
	capacity  int // 0 means unbounded
}

// New returns an empty History. capacity <= 0 means unbounded.
func New(capacity int) *History {
	return &History{capacity: capacity}
}

// BeginTransaction starts a current transaction; fails if one is
// already active.
func (h *History) BeginTransaction(description string) error {
	if h.current != nil {
		return ErrTransactionAlreadyActive
	}
	h.current = &Transaction{Description: description}
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (h *History) InTransaction() bool { return h.current != nil }

// CommitTransaction moves the current transaction onto the undo stack
// as one entry (a no-op if it recorded no actions) and clears it.
func (h *History) CommitTransaction() error {
	if h.current == nil {
		return ErrNoActiveTransaction
	}
	tx := h.current
	h.current = nil
	if len(tx.Actions) == 0 {
		return nil
	}
	h.pushUndo(entry{batch: tx})
	return nil
}

// RollbackTransaction reverses every recorded action of the current
// transaction in LIFO order against target and discards it.
func (h *History) RollbackTransaction(target Target) error {
	if h.current == nil {
		return ErrNoActiveTransaction
	}
	tx := h.current
	h.current = nil
	for i := len(tx.Actions) - 1; i >= 0; i-- {
		if err := tx.Actions[i].Undo(target); err != nil {
			return err
		}
	}
	return nil
}

// Record appends action to the current transaction if one is active,
// else pushes it as a singleton undo entry. Either way it clears the
// redo stack, since any newly recorded edit invalidates prior redo
// history.
func (h *History) Record(action Action) {
	h.redoStack = nil
	if h.current != nil {
		h.current.Actions = append(h.current.Actions, action)
		return
	}
	h.pushUndo(entry{single: action})
}

func (h *History) pushUndo(e entry) {
	h.undoStack = append(h.undoStack, e)
	if h.capacity > 0 && len(h.undoStack) > h.capacity {
		h.undoStack = h.undoStack[len(h.undoStack)-h.capacity:]
	}
}

// Undo pops the top of the undo stack, inverts each of its actions
// against target in LIFO order, and pushes the entry onto the redo
// stack.
func (h *History) Undo(target Target) error {
	if len(h.undoStack) == 0 {
		return ErrNothingToUndo
	}
	e := h.undoStack[len(h.undoStack)-1]
	actions := e.actions()
	for i := len(actions) - 1; i >= 0; i-- {
		if err := actions[i].Undo(target); err != nil {
			return err
		}
	}
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, e)
	return nil
}

// Redo pops the top of the redo stack, re-applies each of its actions
// against target in recorded (FIFO) order, and pushes the entry back
// onto the undo stack.
func (h *History) Redo(target Target) error {
	if len(h.redoStack) == 0 {
		return ErrNothingToRedo
	}
	e := h.redoStack[len(h.redoStack)-1]
	actions := e.actions()
	for _, a := range actions {
		if err := a.Apply(target); err != nil {
			return err
		}
	}
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, e)
	return nil
}

// CanUndo and CanRedo report whether the respective stack is non-empty.
func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// Clear empties both stacks and discards any active transaction.
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
	h.current = nil
}
