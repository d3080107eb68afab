package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

type Options struct {
	Oracle         Oracle
	Images         ImageStore
	Recorder       Recorder
	Logger         *zap.Logger
	RoomIDAttempts int
	JudgeTimeout   time.Duration
	UploadTimeout  time.Duration
	// ReconnectGrace is how long a dropped player keeps their seat. Zero
	// removes them as soon as the connection closes.
	ReconnectGrace time.Duration
}

// Service applies client actions to rooms and fans out the resulting
// events. Every room transition runs under that room's lock; oracle calls,
// uploads and history writes run outside it.
type Service struct {
	registry *Registry
	conns    *Connections
	out      *Broadcaster
	oracle   Oracle
	images   ImageStore
	recorder Recorder
	logger   *zap.Logger

	judgeTimeout  time.Duration
	uploadTimeout time.Duration
	grace         time.Duration

	timersMu sync.Mutex
	timers   map[Binding]*time.Timer

	pending sync.WaitGroup
	now     func() time.Time
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	judgeTimeout := opts.JudgeTimeout
	if judgeTimeout <= 0 {
		judgeTimeout = 20 * time.Second
	}
	uploadTimeout := opts.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	conns := NewConnections()
	return &Service{
		registry:      NewRegistry(opts.RoomIDAttempts),
		conns:         conns,
		out:           NewBroadcaster(conns, logger),
		oracle:        opts.Oracle,
		images:        opts.Images,
		recorder:      recorder,
		logger:        logger,
		judgeTimeout:  judgeTimeout,
		uploadTimeout: uploadTimeout,
		grace:         opts.ReconnectGrace,
		timers:        make(map[Binding]*time.Timer),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Rooms() []Summary {
	return s.registry.List()
}

func (s *Service) RoomCount() int {
	return s.registry.Len()
}

func (s *Service) Connections() int {
	return s.conns.Len()
}

// CreateRoom makes a room with the caller as its first drawer and binds conn
// to the new player.
func (s *Service) CreateRoom(conn Conn, settings Settings, nickname string) error {
	s.release(conn)
	room, creator, err := s.registry.Create(settings, nickname)
	if err != nil {
		return err
	}
	var record RoomRecord
	err = s.registry.Update(room.ID, func(room *Room) error {
		s.conns.Attach(room.ID, creator.ID, conn)
		s.out.Send(room, creator.ID, RoomCreated{
			Event:    EventRoomCreated,
			RoomID:   room.ID,
			PlayerID: creator.ID,
			Room:     room.Snapshot(creator.ID),
		})
		record = RoomRecord{
			RoomID:      room.ID,
			MaxPlayers:  room.MaxPlayers,
			TotalRounds: room.TotalRounds,
			Creator:     creator.Nickname,
			CreatedAt:   room.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("room created",
		zap.String("room_id", record.RoomID),
		zap.String("player_id", creator.ID),
		zap.Int("max_players", record.MaxPlayers),
		zap.Int("total_rounds", record.TotalRounds),
	)
	s.record("room created", func(ctx context.Context) error {
		return s.recorder.RoomCreated(ctx, record)
	})
	return nil
}

// JoinRoom admits a new player or reattaches a returning one. A playerID
// from an earlier session resumes that identity, as does joining the room
// the connection is already seated in without one.
func (s *Service) JoinRoom(conn Conn, roomID, nickname, password, playerID string) error {
	if b, ok := s.conns.Resolve(conn); ok {
		if b.RoomID == roomID && playerID == "" {
			playerID = b.PlayerID
		}
		if b.RoomID != roomID || b.PlayerID != playerID {
			s.release(conn)
		}
	}
	return s.registry.Update(roomID, func(room *Room) error {
		result, err := room.Join(nickname, password, playerID, s.registry.newUUID, s.now())
		if err != nil {
			return err
		}
		player := result.Player
		s.cancelGrace(Binding{RoomID: room.ID, PlayerID: player.ID})
		if previous := s.conns.Attach(room.ID, player.ID, conn); previous != nil {
			previous.Close()
		}
		s.out.Send(room, player.ID, RoomJoined{
			Event:    EventRoomJoined,
			RoomID:   room.ID,
			PlayerID: player.ID,
			Rejoined: result.Rejoined,
			Room:     room.Snapshot(player.ID),
		})
		s.out.Broadcast(room, PlayerJoined{
			Event:    EventPlayerJoined,
			RoomID:   room.ID,
			PlayerID: player.ID,
			Nickname: player.Nickname,
			Rejoined: result.Rejoined,
			Players:  room.playerViews(),
		})
		if result.Rejoined {
			s.out.Broadcast(room, PlayerPresence{
				Event:     EventPlayerPresence,
				RoomID:    room.ID,
				PlayerID:  player.ID,
				Connected: true,
				Players:   room.playerViews(),
			})
		}
		s.logger.Info("player joined",
			zap.String("room_id", room.ID),
			zap.String("player_id", player.ID),
			zap.Bool("rejoined", result.Rejoined),
		)
		return nil
	})
}

// LeaveRoom removes the player for good. The connection stays open and may
// create or join another room.
func (s *Service) LeaveRoom(conn Conn, roomID, playerID string) error {
	if err := s.authorize(conn, roomID, playerID); err != nil {
		return err
	}
	s.conns.Forget(roomID, playerID)
	return s.removePlayer(roomID, playerID)
}

// Disconnect handles a closed connection. The player keeps their seat for
// the reconnect grace period.
func (s *Service) Disconnect(conn Conn) {
	binding, ok := s.conns.Detach(conn)
	if !ok {
		return
	}
	if s.grace <= 0 {
		if err := s.removePlayer(binding.RoomID, binding.PlayerID); err != nil {
			s.logger.Debug("disconnect after room closed", zap.String("room_id", binding.RoomID), zap.Error(err))
		}
		return
	}
	err := s.registry.Update(binding.RoomID, func(room *Room) error {
		player := room.player(binding.PlayerID)
		if player == nil {
			return ErrPlayerNotFound
		}
		player.Connected = false
		s.out.Broadcast(room, PlayerPresence{
			Event:     EventPlayerPresence,
			RoomID:    room.ID,
			PlayerID:  player.ID,
			Connected: false,
			Players:   room.playerViews(),
		})
		return nil
	})
	if err != nil {
		return
	}
	s.logger.Info("player disconnected",
		zap.String("room_id", binding.RoomID),
		zap.String("player_id", binding.PlayerID),
		zap.Duration("grace", s.grace),
	)
	s.scheduleGrace(binding)
}

// SubmitDrawing takes the keyword and either a drawing reference or raw
// image bytes, which are uploaded before the room sees them.
func (s *Service) SubmitDrawing(ctx context.Context, conn Conn, roomID, playerID, keyword, drawingRef string, image []byte, contentType string) error {
	if err := s.authorize(conn, roomID, playerID); err != nil {
		return err
	}
	if len(image) > 0 {
		err := s.registry.Update(roomID, func(room *Room) error {
			if room.Phase != PhaseLobby && room.Phase != PhaseDrawing {
				return phaseError(room.Phase, "submit a drawing")
			}
			if room.DrawerID != playerID {
				return ErrNotDrawer
			}
			return nil
		})
		if err != nil {
			return err
		}
		ref, err := s.UploadImage(ctx, roomID, image, contentType)
		if err != nil {
			return err
		}
		drawingRef = ref
	}
	return s.registry.Update(roomID, func(room *Room) error {
		shown, err := room.SubmitDrawing(playerID, keyword, drawingRef, s.now())
		if err != nil {
			return err
		}
		if !shown {
			s.broadcastState(room)
			return nil
		}
		s.out.Broadcast(room, NewDrawing{
			Event:      EventNewDrawing,
			RoomID:     room.ID,
			DrawerID:   room.DrawerID,
			DrawingRef: room.DrawingRef,
		})
		s.logger.Info("drawing submitted", zap.String("room_id", room.ID), zap.Int("turn", room.Turn))
		return nil
	})
}

// UploadImage stores image bytes and returns the reference guessers load.
func (s *Service) UploadImage(ctx context.Context, roomID string, data []byte, contentType string) (string, error) {
	if s.images == nil {
		return "", ErrStorageUnavailable
	}
	if len(data) == 0 {
		return "", invalidInput("image is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()
	ref, err := s.images.Put(ctx, roomID, data, contentType)
	if err != nil {
		s.logger.Warn("image upload failed", zap.String("room_id", roomID), zap.Error(err))
		return "", unavailable(ErrStorageUnavailable, err)
	}
	return ref, nil
}

func (s *Service) SubmitGuess(conn Conn, roomID, playerID, guess string) error {
	if err := s.authorize(conn, roomID, playerID); err != nil {
		return err
	}
	return s.registry.Update(roomID, func(room *Room) error {
		complete, err := room.SubmitGuess(playerID, guess)
		if err != nil {
			return err
		}
		s.broadcastState(room)
		if complete {
			s.startJudging(room)
		}
		return nil
	})
}

// SubmitJudgments resolves the round with the drawer's decisions.
func (s *Service) SubmitJudgments(conn Conn, roomID, playerID string, decisions map[string]bool) error {
	if err := s.authorize(conn, roomID, playerID); err != nil {
		return err
	}
	var record RoundRecord
	err := s.registry.Update(roomID, func(room *Room) error {
		outcome, err := room.SubmitJudgments(playerID, decisions, s.now())
		if err != nil {
			return err
		}
		record = s.announceRoundEnd(room, outcome)
		return nil
	})
	if err != nil {
		return err
	}
	s.recordRound(&record)
	return nil
}

// PlayerReady acknowledges the end of a turn. The last acknowledgement
// starts the next turn or ends the game.
func (s *Service) PlayerReady(conn Conn, roomID, playerID string) error {
	if err := s.authorize(conn, roomID, playerID); err != nil {
		return err
	}
	var closed *ClosedRecord
	err := s.registry.Update(roomID, func(room *Room) error {
		added, all, err := room.MarkReady(playerID)
		if err != nil {
			return err
		}
		if added {
			s.out.Broadcast(room, ReadyUpdate{
				Event:      EventReadyUpdate,
				RoomID:     room.ID,
				PlayerID:   playerID,
				ReadyCount: room.Ready.Len(),
				Players:    room.playerViews(),
			})
		}
		if all {
			closed = s.advance(room)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordClosed(closed)
	return nil
}

// Snapshot returns the room as viewerID should see it.
func (s *Service) Snapshot(roomID, viewerID string) (Snapshot, error) {
	var snap Snapshot
	err := s.registry.Update(roomID, func(room *Room) error {
		if viewerID != "" && room.player(viewerID) == nil {
			return ErrPlayerNotFound
		}
		snap = room.Snapshot(viewerID)
		return nil
	})
	return snap, err
}

// Wait blocks until in-flight oracle calls have been applied.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Close stops reconnect timers and waits for outstanding oracle calls.
func (s *Service) Close() {
	s.timersMu.Lock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
	s.timersMu.Unlock()
	s.pending.Wait()
}

func (s *Service) authorize(conn Conn, roomID, playerID string) error {
	binding, ok := s.conns.Resolve(conn)
	if !ok || binding.RoomID != roomID || binding.PlayerID != playerID {
		return ErrNotInRoom
	}
	return nil
}

// release leaves whatever room conn is currently bound to.
func (s *Service) release(conn Conn) {
	binding, ok := s.conns.Resolve(conn)
	if !ok {
		return
	}
	s.conns.Forget(binding.RoomID, binding.PlayerID)
	if err := s.removePlayer(binding.RoomID, binding.PlayerID); err != nil {
		s.logger.Debug("release stale binding", zap.String("room_id", binding.RoomID), zap.Error(err))
	}
}

func (s *Service) removePlayer(roomID, playerID string) error {
	s.cancelGrace(Binding{RoomID: roomID, PlayerID: playerID})
	var history departure
	err := s.registry.Update(roomID, func(room *Room) error {
		var err error
		history, err = s.removeLocked(room, playerID)
		return err
	})
	if err != nil {
		return err
	}
	s.recordDeparture(history)
	return nil
}

// departure is the history a player's removal produced under the room lock.
type departure struct {
	round  *RoundRecord
	closed *ClosedRecord
}

// removeLocked takes a player out of a locked room and follows up on any
// wait the departure completed.
func (s *Service) removeLocked(room *Room, playerID string) (departure, error) {
	result, err := room.Leave(playerID, s.now())
	if err != nil {
		return departure{}, err
	}
	s.logger.Info("player left",
		zap.String("room_id", room.ID),
		zap.String("player_id", playerID),
		zap.Bool("was_drawer", result.WasDrawer),
		zap.Bool("round_reset", result.RoundReset),
		zap.Bool("round_resolved", result.RoundResolved),
	)
	if result.Empty {
		s.registry.remove(room)
		s.logger.Info("room closed", zap.String("room_id", room.ID), zap.String("reason", CloseReasonEmpty))
		return departure{closed: &ClosedRecord{RoomID: room.ID, Reason: CloseReasonEmpty, ClosedAt: s.now()}}, nil
	}
	s.out.Broadcast(room, PlayerLeft{
		Event:      EventPlayerLeft,
		RoomID:     room.ID,
		PlayerID:   result.Player.ID,
		Nickname:   result.Player.Nickname,
		DrawerLeft: result.WasDrawer,
		DrawerID:   room.DrawerID,
		RoundReset: result.RoundReset,
		Phase:      room.Phase,
		Players:    room.playerViews(),
	})
	switch {
	case result.RoundReset:
		s.broadcastRoundStart(room)
	case result.RoundResolved:
		record := s.announceRoundEnd(room, RoundOutcome{})
		return departure{round: &record}, nil
	case room.Phase == PhaseAwaitingGuesses && room.allGuessed():
		s.startJudging(room)
	case room.Phase == PhaseRoundEnd && room.allReady():
		return departure{closed: s.advance(room)}, nil
	}
	return departure{}, nil
}

func (s *Service) startJudging(room *Room) {
	req := room.BeginJudging(s.now())
	s.out.Broadcast(room, AllGuessed{
		Event:   EventAllGuessed,
		RoomID:  room.ID,
		Guesses: guessViews(room.Judgments),
	})
	s.pending.Add(1)
	go s.judge(req)
}

func (s *Service) judge(req JudgeRequest) {
	defer s.pending.Done()
	verdicts, err := s.callOracle(req)
	outcome := JudgeOutcome{Attempt: req.Attempt, Verdicts: verdicts, Err: err}
	var resolved *RoundRecord
	updateErr := s.registry.Update(req.RoomID, func(room *Room) error {
		if !room.ApplyJudgeOutcome(outcome, s.now()) {
			s.logger.Debug("discarding stale judgment",
				zap.String("room_id", room.ID),
				zap.Int("attempt", req.Attempt),
			)
			return nil
		}
		if room.Phase == PhaseRoundEnd {
			record := s.announceRoundEnd(room, RoundOutcome{})
			resolved = &record
			return nil
		}
		s.announceJudging(room, outcome.Err)
		return nil
	})
	if updateErr != nil {
		s.logger.Debug("room gone before judgment", zap.String("room_id", req.RoomID))
		return
	}
	s.recordRound(resolved)
}

func (s *Service) callOracle(req JudgeRequest) ([]Verdict, error) {
	if s.oracle == nil {
		return nil, ErrOracleUnavailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.judgeTimeout)
	defer cancel()
	verdicts, err := s.oracle.Judge(ctx, req.Keyword, req.Guesses)
	if err != nil {
		s.logger.Warn("oracle failed", zap.String("room_id", req.RoomID), zap.Error(err))
		return nil, unavailable(ErrOracleUnavailable, err)
	}
	if len(verdicts) != len(req.Guesses) {
		s.logger.Warn("oracle verdict count mismatch",
			zap.String("room_id", req.RoomID),
			zap.Int("guesses", len(req.Guesses)),
			zap.Int("verdicts", len(verdicts)),
		)
		return nil, ErrOracleUnavailable
	}
	return verdicts, nil
}

func (s *Service) announceJudging(room *Room, failure error) {
	if failure != nil {
		s.out.Broadcast(room, AIJudgmentFailed{
			Event:   EventAIJudgmentFailed,
			RoomID:  room.ID,
			Error:   failure.Error(),
			Guesses: guessViews(room.Judgments),
		})
		return
	}
	detail := judgmentViews(room.Judgments)
	s.out.Personalize(room, func(p *Player) any {
		if p.ID == room.DrawerID {
			return AIJudgments{
				Event:     EventAIJudgments,
				RoomID:    room.ID,
				Keyword:   room.Keyword,
				Judgments: detail,
			}
		}
		return AIJudgments{Event: EventAIJudgments, RoomID: room.ID, Pending: true}
	})
}

// announceRoundEnd tells every player how the round went. Guessers only see
// their own judgment. The returned record is persisted once the lock is
// released.
func (s *Service) announceRoundEnd(room *Room, outcome RoundOutcome) RoundRecord {
	deltas := deltaViews(outcome.Deltas)
	players := room.playerViews()
	s.out.Personalize(room, func(p *Player) any {
		judgments := outcome.Judgments
		if p.ID != room.DrawerID {
			judgments = ownJudgment(outcome.Judgments, p.ID)
		}
		return RoundEnd{
			Event:        EventRoundEnd,
			RoomID:       room.ID,
			Keyword:      room.Keyword,
			CurrentRound: room.CurrentRound,
			TotalRounds:  room.TotalRounds,
			Turn:         room.Turn,
			Judgments:    judgmentViews(judgments),
			Deltas:       deltas,
			Players:      players,
		}
	})
	s.logger.Info("round resolved",
		zap.String("room_id", room.ID),
		zap.Int("turn", room.Turn),
		zap.Int("correct", outcome.CorrectCount),
		zap.Bool("ai_available", room.AutoAvailable),
	)
	return RoundRecord{
		RoomID:        room.ID,
		Round:         room.CurrentRound,
		Turn:          room.Turn,
		Drawer:        drawerNickname(room),
		Keyword:       room.Keyword,
		DrawingRef:    room.DrawingRef,
		AutoAvailable: room.AutoAvailable,
		Judgments:     append([]Judgment(nil), outcome.Judgments...),
		ResolvedAt:    room.PhaseStartedAt,
	}
}

// advance moves a fully acknowledged room on. A finished game is removed
// from the registry and its record returned for the caller to persist.
func (s *Service) advance(room *Room) *ClosedRecord {
	result := room.Advance(s.now())
	if !result.GameOver {
		s.broadcastRoundStart(room)
		return nil
	}
	scores := room.finalScores()
	s.out.Broadcast(room, GameOver{
		Event:       EventGameOver,
		RoomID:      room.ID,
		FinalScores: scores,
		Players:     room.playerViews(),
	})
	for _, p := range room.Players {
		s.cancelGrace(Binding{RoomID: room.ID, PlayerID: p.ID})
		s.conns.Forget(room.ID, p.ID)
	}
	s.registry.remove(room)
	s.logger.Info("game over", zap.String("room_id", room.ID), zap.Int("players", len(room.Players)))
	return &ClosedRecord{RoomID: room.ID, Reason: CloseReasonGameOver, FinalScores: scores, ClosedAt: s.now()}
}

func (s *Service) broadcastRoundStart(room *Room) {
	msg := RoundStart{
		Event:        EventRoundStart,
		RoomID:       room.ID,
		CurrentRound: room.CurrentRound,
		TotalRounds:  room.TotalRounds,
		Turn:         room.Turn,
		DrawerID:     room.DrawerID,
		Players:      room.playerViews(),
	}
	msg.DrawerNickname = drawerNickname(room)
	s.out.Broadcast(room, msg)
}

func drawerNickname(room *Room) string {
	if drawer := room.drawer(); drawer != nil {
		return drawer.Nickname
	}
	return ""
}

func (s *Service) broadcastState(room *Room) {
	s.out.Personalize(room, func(p *Player) any {
		return RoomState{Event: EventRoomState, Room: room.Snapshot(p.ID)}
	})
}

func (s *Service) recordDeparture(d departure) {
	s.recordRound(d.round)
	s.recordClosed(d.closed)
}

func (s *Service) recordRound(rec *RoundRecord) {
	if rec == nil {
		return
	}
	s.record("round resolved", func(ctx context.Context) error {
		return s.recorder.RoundResolved(ctx, *rec)
	})
}

func (s *Service) recordClosed(rec *ClosedRecord) {
	if rec == nil {
		return
	}
	s.record("room closed", func(ctx context.Context) error {
		return s.recorder.RoomClosed(ctx, *rec)
	})
}

func (s *Service) record(what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("history write failed", zap.String("what", what), zap.Error(err))
	}
}
