package screen

import "fmt"

// LoadState is the lifecycle of the initial fetch.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// DialogMode tells which modal, if any, is open.
type DialogMode int

const (
	DialogClosed DialogMode = iota
	DialogAdd
	DialogEdit
)

func (m DialogMode) String() string {
	switch m {
	case DialogClosed:
		return "closed"
	case DialogAdd:
		return "add"
	case DialogEdit:
		return "edit"
	default:
		return fmt.Sprintf("DialogMode(%d)", int(m))
	}
}

// Action names a mutation sent to the backend.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type pendingKey struct {
	action Action
	id     int
}
