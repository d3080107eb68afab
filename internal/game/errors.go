package game

import (
	"errors"
	"fmt"
)

// Code identifies a rejection kind on the wire.
type Code string

const (
	CodeRoomNotFound           Code = "RoomNotFound"
	CodeIncorrectPassword      Code = "IncorrectPassword"
	CodeDuplicateNickname      Code = "DuplicateNickname"
	CodeRoomFull               Code = "RoomFull"
	CodeIncompleteJudgments    Code = "IncompleteJudgments"
	CodeOracleUnavailable      Code = "OracleUnavailable"
	CodeInvalidPhaseTransition Code = "InvalidPhaseTransition"
	CodePlayerNotFound         Code = "PlayerNotFound"
	CodeNotInRoom              Code = "NotInRoom"
	CodeNotDrawer              Code = "NotDrawer"
	CodeDrawerCannotGuess      Code = "DrawerCannotGuess"
	CodeInvalidInput           Code = "InvalidInput"
	CodeRoomIDExhausted        Code = "RoomIDExhausted"
	CodeStorageUnavailable     Code = "StorageUnavailable"
)

// Error is a game rejection. Two errors match under errors.Is when their
// codes are equal, so callers can compare against the sentinels below even
// when the message carries detail.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrRoomNotFound           = &Error{Code: CodeRoomNotFound, Msg: "room not found"}
	ErrIncorrectPassword      = &Error{Code: CodeIncorrectPassword, Msg: "incorrect password"}
	ErrDuplicateNickname      = &Error{Code: CodeDuplicateNickname, Msg: "nickname already taken"}
	ErrRoomFull               = &Error{Code: CodeRoomFull, Msg: "room is full"}
	ErrIncompleteJudgments    = &Error{Code: CodeIncompleteJudgments, Msg: "a decision is required for every guesser"}
	ErrOracleUnavailable      = &Error{Code: CodeOracleUnavailable, Msg: "automated judgment unavailable"}
	ErrInvalidPhaseTransition = &Error{Code: CodeInvalidPhaseTransition, Msg: "not allowed in the current phase"}
	ErrPlayerNotFound         = &Error{Code: CodePlayerNotFound, Msg: "player not found"}
	ErrNotInRoom              = &Error{Code: CodeNotInRoom, Msg: "connection is not bound to this player"}
	ErrNotDrawer              = &Error{Code: CodeNotDrawer, Msg: "only the drawer can do that"}
	ErrDrawerCannotGuess      = &Error{Code: CodeDrawerCannotGuess, Msg: "the drawer cannot guess"}
	ErrInvalidInput           = &Error{Code: CodeInvalidInput, Msg: "invalid input"}
	ErrRoomIDExhausted        = &Error{Code: CodeRoomIDExhausted, Msg: "could not allocate a room id"}
	ErrStorageUnavailable     = &Error{Code: CodeStorageUnavailable, Msg: "image storage unavailable"}
)

func invalidInput(format string, args ...any) error {
	return &Error{Code: CodeInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func phaseError(phase Phase, action string) error {
	return &Error{
		Code: CodeInvalidPhaseTransition,
		Msg:  fmt.Sprintf("cannot %s during %s", action, phase),
	}
}

func unavailable(sentinel *Error, cause error) error {
	return &Error{Code: sentinel.Code, Msg: sentinel.Msg + ": " + cause.Error()}
}

// CodeOf returns the rejection code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return ""
}
