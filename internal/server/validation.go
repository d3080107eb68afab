package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNicknameLength = 20
	maxPasswordLength = 64
	maxGuessLength    = 60
	maxKeywordLength  = 40
	maxRefLength      = 2048
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
			_, err := validateNickname(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			_, err := validatePassword(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("guess", func(fl validator.FieldLevel) bool {
			_, err := validateGuess(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("keyword", func(fl validator.FieldLevel) bool {
			_, err := validateKeyword(fl.Field().String())
			return err == nil
		})
	})
}

func validateNickname(name string) (string, error) {
	return validateText("nickname", name, maxNicknameLength)
}

func validateGuess(text string) (string, error) {
	return validateText("guess", text, maxGuessLength)
}

func validateKeyword(text string) (string, error) {
	return validateText("keyword", text, maxKeywordLength)
}

// Passwords are compared verbatim, so they are not normalized; only control
// characters are refused.
func validatePassword(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("password is required")
	}
	if len(text) > maxPasswordLength {
		return "", fmt.Errorf("password must be %d characters or fewer", maxPasswordLength)
	}
	for _, r := range text {
		if r < 32 || r == 127 {
			return "", errors.New("password contains unsupported characters")
		}
	}
	return text, nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}
