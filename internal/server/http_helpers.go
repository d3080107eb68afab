package server

import (
	"errors"
	"net/http"

	"draw-guess/internal/game"
	"draw-guess/internal/storage"

	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  game.CodeOf(err),
	})
}

func statusFor(err error) int {
	switch game.CodeOf(err) {
	case game.CodeRoomNotFound, game.CodePlayerNotFound:
		return http.StatusNotFound
	case game.CodeInvalidInput:
		return http.StatusBadRequest
	case game.CodeStorageUnavailable:
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
