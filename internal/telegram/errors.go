package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrRecipientUnreachable means the user blocked the bot or no longer exists.
// Retrying is pointless; callers deactivate the user instead.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// TransportError is any other failed Bot API call. It may succeed on retry.
type TransportError struct {
	Op         string
	Code       int
	RetryAfter int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram %s failed (%d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("telegram %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRecipientUnreachable reports whether err signals a blocked or deleted recipient
func IsRecipientUnreachable(err error) bool {
	return errors.Is(err, ErrRecipientUnreachable)
}

// classify maps a tgbotapi error onto the transport error taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		var valErr tgbotapi.Error
		if errors.As(err, &valErr) {
			apiErr = &valErr
		}
	}
	if apiErr != nil {
		if apiErr.Code == http.StatusForbidden || isGoneChat(apiErr) {
			return fmt.Errorf("telegram %s: %w: %s", op, ErrRecipientUnreachable, apiErr.Message)
		}
		return &TransportError{Op: op, Code: apiErr.Code, RetryAfter: apiErr.RetryAfter, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// isGoneChat covers deleted accounts reported as 400 instead of 403
func isGoneChat(apiErr *tgbotapi.Error) bool {
	if apiErr.Code != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "chat not found") || strings.Contains(msg, "user is deactivated")
}
