package server

import (
	"errors"
	"io"
	"net/http"

	"draw-guess/internal/game"
	"draw-guess/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type roomURI struct {
	RoomID string `uri:"roomId" binding:"required,alphanum,max=16"`
}

type stateQuery struct {
	PlayerID string `form:"playerId" binding:"omitempty,uuid"`
}

type imageURI struct {
	Key string `uri:"key" binding:"required,max=256"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       s.svc.RoomCount(),
		"connections": s.svc.Connections(),
	})
}

// handleRoomState returns the room as playerId would see it; without a
// playerId the keyword stays hidden until the round resolves.
func (s *Server) handleRoomState(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var query stateQuery
	if !bindQuery(c, &query) {
		return
	}
	snap, err := s.svc.Snapshot(normalizeRoomID(uri.RoomID), query.PlayerID)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// handleUpload accepts a multipart "file" and returns the URL clients
// should send as drawingRef.
func (s *Server) handleUpload(c *gin.Context) {
	limit := int64(s.cfg.MaxImageBytes)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, storage.ErrTooLarge)
			return
		}
		writeError(c, http.StatusBadRequest, &game.Error{Code: game.CodeInvalidInput, Msg: "file is required"})
		return
	}
	if header.Size > limit {
		writeError(c, http.StatusRequestEntityTooLarge, storage.ErrTooLarge)
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, &game.Error{Code: game.CodeInvalidInput, Msg: "file is unreadable"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, &game.Error{Code: game.CodeInvalidInput, Msg: "file is unreadable"})
		return
	}
	contentType, err := storage.Validate(data, s.cfg.MaxImageBytes)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}

	roomID := normalizeRoomID(c.PostForm("roomId"))
	url, err := s.svc.UploadImage(c.Request.Context(), roomID, data, contentType)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	s.logger.Info("image uploaded",
		zap.String("room_id", roomID),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleImage(c *gin.Context) {
	var uri imageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	obj, err := s.images.Get(c.Request.Context(), uri.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		s.logger.Warn("image read failed", zap.String("key", uri.Key), zap.Error(err))
		c.Status(http.StatusBadGateway)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
