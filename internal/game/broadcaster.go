package game

import "go.uber.org/zap"

// Broadcaster fans messages out to room members. Callers hold the room lock,
// so messages leave in the order the room processed its events.
type Broadcaster struct {
	conns  *Connections
	logger *zap.Logger
}

func NewBroadcaster(conns *Connections, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{conns: conns, logger: logger}
}

func (b *Broadcaster) Broadcast(room *Room, msg any) {
	for _, p := range room.Players {
		b.deliver(room.ID, p.ID, msg)
	}
}

func (b *Broadcaster) Send(room *Room, playerID string, msg any) {
	b.deliver(room.ID, playerID, msg)
}

// Personalize sends each member the message built for them; a nil message
// skips that member.
func (b *Broadcaster) Personalize(room *Room, build func(p *Player) any) {
	for _, p := range room.Players {
		msg := build(p)
		if msg == nil {
			continue
		}
		b.deliver(room.ID, p.ID, msg)
	}
}

func (b *Broadcaster) deliver(roomID, playerID string, msg any) {
	conn, ok := b.conns.Conn(roomID, playerID)
	if !ok {
		return
	}
	if conn.Send(msg) {
		return
	}
	// Slow or dead client: close it and let its reader report the disconnect.
	b.logger.Warn("dropping slow connection",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
	)
	conn.Close()
}
