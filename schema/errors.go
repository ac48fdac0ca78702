package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrWindowNotFound indicates a requested window could not be found.
	ErrWindowNotFound = errors.New("window not found")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrWindowClosed indicates the window stopped accepting work.
	ErrWindowClosed = errors.New("window closed")
	// ErrDuplicateTab indicates a tab id is already a member of the collection.
	ErrDuplicateTab = errors.New("tab already in collection")
	// ErrContentParented indicates content was attached while it still had a parent.
	ErrContentParented = errors.New("content already has a parent")
	// ErrHandoffCancelled indicates a cross-window move was abandoned before any mutation.
	ErrHandoffCancelled = errors.New("handoff cancelled")
	// ErrDragEnded indicates the drag session was already finished.
	ErrDragEnded = errors.New("drag session ended")
	// ErrNoFocusedWindow indicates a shortcut arrived without a window to act on.
	ErrNoFocusedWindow = errors.New("no focused window")
	// ErrControllerClosed indicates the controller was shut down.
	ErrControllerClosed = errors.New("controller closed")
)
