// Package orchestrator is the single entry point UI code calls to
// execute a user action: it resolves the screen's contract, checks
// permissions, resolves the endpoint, and routes the action down the
// read path, the write path (with offline queue fallback), or a pure
// navigation resolution.
package orchestrator

import "net/http"

// Kind is a generic UI event the orchestrator knows how to dispatch.
type Kind string

const (
	KindLoadData     Kind = "load_data"
	KindRefresh      Kind = "refresh"
	KindSearch       Kind = "search"
	KindLoadMore     Kind = "load_more"
	KindSaveNew      Kind = "save_new"
	KindSaveExisting Kind = "save_existing"
	KindDelete       Kind = "delete"
	KindSelectItem   Kind = "select_item"
	KindCreate       Kind = "create"
)

// IsRead reports whether the event goes down the read path.
func (k Kind) IsRead() bool {
	switch k {
	case KindLoadData, KindRefresh, KindSearch, KindLoadMore:
		return true
	}
	return false
}

// IsWrite reports whether the event goes down the write path.
func (k Kind) IsWrite() bool {
	switch k {
	case KindSaveNew, KindSaveExisting, KindDelete:
		return true
	}
	return false
}

// Method returns the HTTP method for a write event, or "" otherwise.
func (k Kind) Method() string {
	switch k {
	case KindSaveNew:
		return http.MethodPost
	case KindSaveExisting:
		return http.MethodPut
	case KindDelete:
		return http.MethodDelete
	}
	return ""
}

// Context is the immutable per-call value carrying screen identity and
// the caller's state. Construct a fresh one per call.
type Context struct {
	ScreenKey    string
	Permissions  map[string]bool
	SelectedItem map[string]any
	FieldValues  map[string]any
	Query        string
	Offset       int
}

// HasPermission reports whether the caller holds the permission.
func (c Context) HasPermission(p string) bool {
	return c.Permissions[p]
}

// SelectedItemID returns the selected item's id field, if any.
func (c Context) SelectedItemID() string {
	if c.SelectedItem == nil {
		return ""
	}
	if id, ok := c.SelectedItem["id"].(string); ok {
		return id
	}
	return ""
}

// ResultKind is the closed set of orchestrated action outcomes.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultNavigateTo
	ResultError
	ResultPermissionDenied
	ResultLogout
	ResultCancelled
	ResultNoOp
	ResultSubmitTo
	ResultPendingDelete
	ResultOptimisticSuccess
)

// String returns the display name of the result kind.
func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultNavigateTo:
		return "navigate_to"
	case ResultError:
		return "error"
	case ResultPermissionDenied:
		return "permission_denied"
	case ResultLogout:
		return "logout"
	case ResultCancelled:
		return "cancelled"
	case ResultNoOp:
		return "no_op"
	case ResultSubmitTo:
		return "submit_to"
	case ResultPendingDelete:
		return "pending_delete"
	case ResultOptimisticSuccess:
		return "optimistic_success"
	default:
		return "unknown"
	}
}

// Result is what every orchestrated action returns. Write actions
// always come back message-bearing, never as a bare error.
type Result struct {
	Kind          ResultKind
	Message       string
	Data          []byte // loaded data on the read path
	TargetScreen  string // navigate_to / submit_to
	UpdateID      string // optimistic_success
	QueuedOffline bool   // write captured by the mutation queue
	Err           error  // underlying cause for error results
}

// Errorf builds an error result.
func Errorf(err error, message string) Result {
	return Result{Kind: ResultError, Message: message, Err: err}
}
