package channel

// Connection implements urn:x-cast:com.google.cast.tp.connection. It
// has no response semantics: CONNECT and CLOSE are fire-and-forget
// virtual-connection control messages, carrying no requestId.
type Connection struct {
	sender Sender
}

// NewConnection constructs a Connection channel bound to sender.
func NewConnection(sender Sender) *Connection {
	return &Connection{sender: sender}
}

// Namespace implements JSONHandler.
func (c *Connection) Namespace() string { return NamespaceConnection }

// Open sends CONNECT to destinationID, opening a virtual connection to
// the receiver platform or a launched app's transport.
func (c *Connection) Open(destinationID string) error {
	return c.sender.SendJSONMessage(NamespaceConnection, destinationID, map[string]any{"type": "CONNECT"})
}

// Close sends CLOSE to destinationID, tearing down a virtual connection.
func (c *Connection) Close(destinationID string) error {
	return c.sender.SendJSONMessage(NamespaceConnection, destinationID, map[string]any{"type": "CLOSE"})
}

// HandleJSON is a no-op: a receiver-initiated CLOSE is observed by the
// transport closing, not by anything meaningful in this namespace's
// payload.
func (c *Connection) HandleJSON(map[string]any, string) {}
