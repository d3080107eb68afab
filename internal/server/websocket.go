package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"draw-guess/internal/game"
	"draw-guess/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	outboxSize   = 64
)

// session is one websocket client. It satisfies game.Conn: Send queues
// without blocking and Close asks the write pump to hang up.
type session struct {
	id      string
	conn    *websocket.Conn
	out     chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newSession(conn *websocket.Conn, limiter *rate.Limiter, logger *zap.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:      id,
		conn:    conn,
		out:     make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		limiter: limiter,
		logger:  logger.With(zap.String("session_id", id)),
	}
}

func (s *session) Send(msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode message", zap.Error(err))
		return true
	}
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}

func (s *session) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *session) fail(err error) {
	s.Send(game.NewErrorMessage(err))
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case data := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			s.flush()
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is already queued, so a final game_over or error
// reaches the client before the close frame.
func (s *session) flush() {
	for {
		select {
		case data := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	sess := newSession(conn, s.newLimiter(), s.logger)
	sess.logger.Info("websocket connected", zap.String("remote", c.Request.RemoteAddr))
	go sess.writePump()
	s.readLoop(c.Request.Context(), sess)
}

func (s *Server) readLoop(ctx context.Context, sess *session) {
	defer func() {
		s.svc.Disconnect(sess)
		sess.Close()
	}()
	sess.conn.SetReadLimit(s.maxMessageBytes())
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.logger.Info("websocket closed", zap.Error(err))
			} else {
				sess.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		if !sess.limiter.Allow() {
			sess.fail(&game.Error{Code: game.CodeInvalidInput, Msg: "too many messages"})
			continue
		}
		if err := s.dispatch(ctx, sess, data); err != nil {
			sess.logger.Debug("message rejected", zap.String("code", string(game.CodeOf(err))), zap.Error(err))
			sess.fail(err)
		}
	}
}

// maxMessageBytes leaves room for a base64 image at the configured limit.
func (s *Server) maxMessageBytes() int64 {
	return int64(s.cfg.MaxImageBytes)*4/3 + 64*1024
}

// dispatch decodes one client message and applies it. Returned errors go
// back to this connection only.
func (s *Server) dispatch(ctx context.Context, sess *session, data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &game.Error{Code: game.CodeInvalidInput, Msg: "malformed message"}
	}
	switch env.Event {
	case eventCreateRoom:
		var req createRoomRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.svc.CreateRoom(sess, req.settings(), normalizeText(req.Nickname))

	case eventJoinRoom:
		var req joinRoomRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.svc.JoinRoom(sess, normalizeRoomID(req.RoomID), normalizeText(req.Nickname), req.Password, req.PlayerID)

	case eventLeaveRoom:
		var req playerRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.svc.LeaveRoom(sess, normalizeRoomID(req.RoomID), req.PlayerID)

	case eventSubmitDrawing:
		var req submitDrawingRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.submitDrawing(ctx, sess, req)

	case eventSubmitGuess:
		var req submitGuessRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.svc.SubmitGuess(sess, normalizeRoomID(req.RoomID), req.PlayerID, normalizeText(req.Guess))

	case eventSubmitJudgments:
		var req submitJudgmentsRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.svc.SubmitJudgments(sess, normalizeRoomID(req.RoomID), req.PlayerID, req.decisions())

	case eventPlayerReady:
		var req playerRequest
		if err := decodeRequest(data, &req); err != nil {
			return err
		}
		return s.svc.PlayerReady(sess, normalizeRoomID(req.RoomID), req.PlayerID)
	}
	return unknownEvent(env.Event)
}

func (s *Server) submitDrawing(ctx context.Context, sess *session, req submitDrawingRequest) error {
	roomID := normalizeRoomID(req.RoomID)
	keyword := normalizeText(req.Keyword)
	if req.ImageData == "" {
		return s.svc.SubmitDrawing(ctx, sess, roomID, req.PlayerID, keyword, req.DrawingRef, nil, "")
	}
	image, err := storage.DecodeDataURL(req.ImageData)
	if err != nil {
		return &game.Error{Code: game.CodeInvalidInput, Msg: err.Error()}
	}
	contentType, err := storage.Validate(image, s.cfg.MaxImageBytes)
	if err != nil {
		return &game.Error{Code: game.CodeInvalidInput, Msg: err.Error()}
	}
	return s.svc.SubmitDrawing(ctx, sess, roomID, req.PlayerID, keyword, "", image, contentType)
}
