package registry

import (
	"sync"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

// Conn is a live client channel as seen by the registry.
type Conn interface {
	ID() entity.ConnID
	// Send queues data for delivery and reports false when the channel cannot take it.
	Send(data []byte) bool
	Close()
}

// Registry tracks live connections by handle. Sending to a handle that is not registered is a
// silent no-op.
type Registry struct {
	mu          sync.RWMutex
	connections map[entity.ConnID]Conn
}

func New() *Registry {
	return &Registry{
		connections: make(map[entity.ConnID]Conn),
	}
}

func (that *Registry) Register(conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.connections[conn.ID()] = conn
}

// Unregister - forgets id. It reports whether id was live.
func (that *Registry) Unregister(id entity.ConnID) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.connections[id]; !ok {
		return false
	}

	delete(that.connections, id)

	return true
}

func (that *Registry) IsLive(id entity.ConnID) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.connections[id]

	return ok
}

// Send - hands data to the connection behind id. A connection that cannot keep up is
// unregistered and closed.
func (that *Registry) Send(id entity.ConnID, data []byte) bool {
	that.mu.RLock()
	conn, ok := that.connections[id]
	that.mu.RUnlock()

	if !ok {
		return false
	}

	if conn.Send(data) {
		return true
	}

	if that.Unregister(id) {
		conn.Close()
	}

	return false
}

func (that *Registry) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.connections)
}

// CloseAll - unregisters and closes every live connection.
func (that *Registry) CloseAll() {
	that.mu.Lock()
	conns := make([]Conn, 0, len(that.connections))
	for id, conn := range that.connections {
		conns = append(conns, conn)
		delete(that.connections, id)
	}
	that.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
