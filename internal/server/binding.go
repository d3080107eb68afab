package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"draw-guess/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type bindMessages map[string]map[string]string

var requestMessages = bindMessages{
	"Nickname":    {"required": "nickname is required", "nickname": "nickname must be 1-20 letters, digits or simple punctuation"},
	"Password":    {"required": "password is required", "password": "password must be 1-64 printable characters"},
	"MaxPlayers":  {"required": "maxPlayers is required", "min": "maxPlayers must be at least 2", "max": "maxPlayers must be at most 12"},
	"TotalRounds": {"required": "totalRounds is required", "min": "totalRounds must be at least 1", "max": "totalRounds must be at most 10"},
	"RoomID":      {"required": "roomId is required", "alphanum": "roomId is malformed", "max": "roomId is malformed"},
	"PlayerID":    {"required": "playerId is required", "uuid": "playerId is malformed"},
	"Keyword":     {"required": "keyword is required", "keyword": "keyword must be 1-40 letters, digits or simple punctuation"},
	"DrawingRef":  {"max": "drawingRef is too long"},
	"Guess":       {"required": "guess is required", "guess": "guess must be 1-60 letters, digits or simple punctuation"},
	"Judgments":   {"required": "judgments are required", "min": "judgments are required"},
}

// decodeRequest unmarshals one websocket payload and runs the same validator
// gin uses for HTTP bodies.
func decodeRequest(data []byte, req any) error {
	if err := json.Unmarshal(data, req); err != nil {
		return &game.Error{Code: game.CodeInvalidInput, Msg: "malformed message"}
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return &game.Error{Code: game.CodeInvalidInput, Msg: resolveBindError(err, requestMessages, "invalid message")}
	}
	return nil
}

func bindURI(c *gin.Context, req any) bool {
	if err := c.ShouldBindUri(req); err != nil {
		writeError(c, http.StatusNotFound, game.ErrRoomNotFound)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, http.StatusBadRequest, &game.Error{
			Code: game.CodeInvalidInput,
			Msg:  resolveBindError(err, requestMessages, "invalid query"),
		})
		return false
	}
	return true
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}
