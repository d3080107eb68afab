package game

import (
	"crypto/rand"
	"crypto/subtle"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newRoomID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = roomIDAlphabet[int(buf[i])%len(roomIDAlphabet)]
	}
	return string(buf), nil
}

// Registry is the process-wide room store. mu guards map membership only;
// room state is guarded by each room's own lock, so rooms never contend.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	attempts int
	newID    func() (string, error)
	newUUID  func() string
	now      func() time.Time
}

func NewRegistry(attempts int) *Registry {
	if attempts <= 0 {
		attempts = 16
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		attempts: attempts,
		newID:    newRoomID,
		newUUID:  uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Summary struct {
	ID      string
	Phase   Phase
	Players int
}

// Create registers a new room with the creator as its first drawer.
func (r *Registry) Create(settings Settings, creatorNickname string) (*Room, *Player, error) {
	nickname := strings.TrimSpace(creatorNickname)
	if nickname == "" {
		return nil, nil, invalidInput("nickname is required")
	}
	if settings.Password == "" {
		return nil, nil, invalidInput("password is required")
	}
	if settings.MaxPlayers < MinMaxPlayers || settings.MaxPlayers > MaxMaxPlayers {
		return nil, nil, invalidInput("maxPlayers must be between %d and %d", MinMaxPlayers, MaxMaxPlayers)
	}
	if settings.TotalRounds < 1 || settings.TotalRounds > MaxTotalRounds {
		return nil, nil, invalidInput("totalRounds must be between 1 and %d", MaxTotalRounds)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := ""
	for i := 0; i < r.attempts; i++ {
		candidate, err := r.newID()
		if err != nil {
			return nil, nil, unavailable(ErrRoomIDExhausted, err)
		}
		if _, taken := r.rooms[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, nil, ErrRoomIDExhausted
	}

	now := r.now()
	room := newRoom(id, settings, now)
	creator := &Player{
		ID:        r.newUUID(),
		Nickname:  nickname,
		Role:      RoleDrawer,
		Connected: true,
		JoinedAt:  now,
	}
	room.Players = append(room.Players, creator)
	room.DrawerID = creator.ID
	r.rooms[id] = room
	return room, creator, nil
}

func (r *Registry) Get(id string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// Update runs fn with exclusive access to one room.
func (r *Registry) Update(id string, fn func(room *Room) error) error {
	room, ok := r.Get(id)
	if !ok {
		return ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return ErrRoomNotFound
	}
	return fn(room)
}

// remove destroys a room. Callers hold the room lock.
func (r *Registry) remove(room *Room) {
	room.closed = true
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.rooms[room.ID]; ok && current == room {
		delete(r.rooms, room.ID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) List() []Summary {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	list := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed {
			list = append(list, Summary{ID: room.ID, Phase: room.Phase, Players: len(room.Players)})
		}
		room.mu.Unlock()
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

type JoinResult struct {
	Player   *Player
	Rejoined bool
}

// Join adds a player, or re-attaches an existing identity. A rejoin is
// recognised by playerID, or by nickname when that member's connection has
// dropped.
func (room *Room) Join(nickname, password, playerID string, newID func() string, now time.Time) (JoinResult, error) {
	if subtle.ConstantTimeCompare([]byte(room.Password), []byte(password)) != 1 {
		return JoinResult{}, ErrIncorrectPassword
	}
	nickname = strings.TrimSpace(nickname)
	if playerID != "" {
		if existing := room.player(playerID); existing != nil {
			existing.Connected = true
			return JoinResult{Player: existing, Rejoined: true}, nil
		}
	}
	if nickname == "" {
		return JoinResult{}, invalidInput("nickname is required")
	}
	if existing := room.playerByNickname(nickname); existing != nil {
		if existing.Connected {
			return JoinResult{}, ErrDuplicateNickname
		}
		existing.Connected = true
		return JoinResult{Player: existing, Rejoined: true}, nil
	}
	if len(room.Players) >= room.MaxPlayers {
		return JoinResult{}, ErrRoomFull
	}
	player := &Player{
		ID:        newID(),
		Nickname:  nickname,
		Role:      RoleGuesser,
		Connected: true,
		JoinedAt:  now,
	}
	room.Players = append(room.Players, player)
	return JoinResult{Player: player}, nil
}

type LeaveResult struct {
	Player    *Player
	WasDrawer bool
	Empty     bool
	// NewDrawer is set when the drawer left and a follower took over.
	NewDrawer *Player
	// RoundReset is set when an in-flight round was abandoned because its
	// drawer left.
	RoundReset bool
	// RoundResolved is set when the last judged guesser left mid-judging and
	// the round ended with no score changes.
	RoundResolved bool
}

// Leave removes a player and repairs round state around the gap.
func (room *Room) Leave(playerID string, now time.Time) (LeaveResult, error) {
	index := room.playerIndex(playerID)
	if index < 0 {
		return LeaveResult{}, ErrPlayerNotFound
	}
	player := room.Players[index]
	result := LeaveResult{Player: player, WasDrawer: player.ID == room.DrawerID}

	room.Players = append(room.Players[:index:index], room.Players[index+1:]...)
	delete(room.Guesses, playerID)
	room.Ready.Remove(playerID)
	room.dropJudgment(playerID)

	if len(room.Players) == 0 {
		result.Empty = true
		room.DrawerID = ""
		return result, nil
	}
	if !result.WasDrawer {
		result.RoundResolved = room.abandonJudging(now)
		return result, nil
	}

	// The follower slid into the departed drawer's slot.
	next := room.Players[index%len(room.Players)]
	next.Role = RoleDrawer
	room.DrawerID = next.ID
	result.NewDrawer = next

	switch room.Phase {
	case PhaseDrawing, PhaseAwaitingGuesses, PhaseAIJudging, PhaseHumanJudging:
		room.resetRoundFields()
		room.JudgeAttempt++
		room.setPhase(PhaseDrawing, now)
		result.RoundReset = true
	case PhaseRoundEnd:
		room.keepDrawer = true
	}
	return result, nil
}

func (room *Room) dropJudgment(playerID string) {
	if len(room.Judgments) == 0 {
		return
	}
	kept := room.Judgments[:0]
	for _, j := range room.Judgments {
		if j.PlayerID != playerID {
			kept = append(kept, j)
		}
	}
	room.Judgments = kept
}

func (room *Room) resetRoundFields() {
	room.Keyword = ""
	room.DrawingRef = ""
	room.Guesses = make(map[string]string)
	room.Judgments = nil
	room.AutoAvailable = false
	room.judgeOrder = nil
	room.Ready.Clear()
}
