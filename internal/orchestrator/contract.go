package orchestrator

import "context"

// Handler is a screen-specific custom event handler registered on a
// contract under a string event id.
type Handler func(ctx context.Context, ec Context) Result

// DataConfig carries pagination and field-mapping hints for the read
// path. All fields are optional.
type DataConfig struct {
	PageSize   int
	ItemsField string
	IDField    string
}

// Contract maps a screen's generic events onto endpoints, permissions,
// read-path hints, and custom handlers.
type Contract interface {
	// EndpointFor resolves the endpoint for the event given the call
	// context. ok is false for events with no endpoint (navigation).
	EndpointFor(event Kind, ec Context) (endpoint string, ok bool)

	// PermissionFor returns the permission the event requires, if any.
	PermissionFor(event Kind) (permission string, required bool)

	// DataConfig returns read-path hints, if the screen declares them.
	DataConfig() (*DataConfig, bool)

	// CustomHandler returns the handler registered under eventID.
	CustomHandler(eventID string) (Handler, bool)
}

// Registry resolves a screen key to its contract.
type Registry interface {
	Contract(screenKey string) (Contract, bool)
}

// Loader is the external read-side collaborator. Errors it returns are
// treated as retryable by the caller.
type Loader interface {
	Load(ctx context.Context, endpoint string, cfg *DataConfig, ec Context) ([]byte, error)
}

// StaticContract is a map-backed Contract for hosts that declare their
// screens in code or decode them from a server-described document.
type StaticContract struct {
	Endpoints   map[Kind]string
	Permissions map[Kind]string
	Data        *DataConfig
	Handlers    map[string]Handler
}

// EndpointFor implements Contract.
func (c *StaticContract) EndpointFor(event Kind, _ Context) (string, bool) {
	ep, ok := c.Endpoints[event]
	return ep, ok
}

// PermissionFor implements Contract.
func (c *StaticContract) PermissionFor(event Kind) (string, bool) {
	p, ok := c.Permissions[event]
	return p, ok
}

// DataConfig implements Contract.
func (c *StaticContract) DataConfig() (*DataConfig, bool) {
	return c.Data, c.Data != nil
}

// CustomHandler implements Contract.
func (c *StaticContract) CustomHandler(eventID string) (Handler, bool) {
	h, ok := c.Handlers[eventID]
	return h, ok
}

// StaticRegistry is a map-backed Registry.
type StaticRegistry map[string]Contract

// Contract implements Registry.
func (r StaticRegistry) Contract(screenKey string) (Contract, bool) {
	c, ok := r[screenKey]
	return c, ok
}
