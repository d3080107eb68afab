package game

import "sync"

// Conn is a replaceable outbound capability for one live client. Send must
// not block; it reports false when the message could not be queued.
type Conn interface {
	Send(msg any) bool
	Close()
}

type Binding struct {
	RoomID   string
	PlayerID string
}

// Connections maps durable player identities to their current connection.
// Identity outlives any connection: a reconnect swaps the handle and leaves
// the player untouched.
type Connections struct {
	mu       sync.Mutex
	byPlayer map[Binding]Conn
	byConn   map[Conn]Binding
}

func NewConnections() *Connections {
	return &Connections{
		byPlayer: make(map[Binding]Conn),
		byConn:   make(map[Conn]Binding),
	}
}

// Attach binds conn to a player, replacing and returning any previous
// handle. A connection is bound to at most one player at a time.
func (c *Connections) Attach(roomID, playerID string, conn Conn) Conn {
	key := Binding{RoomID: roomID, PlayerID: playerID}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.byConn[conn]; ok && old != key {
		delete(c.byPlayer, old)
	}
	previous := c.byPlayer[key]
	if previous == conn {
		previous = nil
	}
	if previous != nil {
		delete(c.byConn, previous)
	}
	c.byPlayer[key] = conn
	c.byConn[conn] = key
	return previous
}

// Detach unbinds conn and reports what it was bound to. A conn that has
// already been replaced by a newer one reports false.
func (c *Connections) Detach(conn Conn) (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byConn[conn]
	if !ok {
		return Binding{}, false
	}
	delete(c.byConn, conn)
	if c.byPlayer[key] == conn {
		delete(c.byPlayer, key)
	}
	return key, true
}

// Forget drops a player's binding, returning the connection that was bound.
func (c *Connections) Forget(roomID, playerID string) Conn {
	key := Binding{RoomID: roomID, PlayerID: playerID}
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.byPlayer[key]
	if !ok {
		return nil
	}
	delete(c.byPlayer, key)
	delete(c.byConn, conn)
	return conn
}

func (c *Connections) Resolve(conn Conn) (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byConn[conn]
	return key, ok
}

func (c *Connections) Conn(roomID, playerID string) (Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.byPlayer[Binding{RoomID: roomID, PlayerID: playerID}]
	return conn, ok
}

func (c *Connections) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byConn)
}
