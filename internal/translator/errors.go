package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Class buckets a remote-call failure for metrics and for the user-visible
// message. Classification drives messaging only, never control flow.
type Class string

const (
	ClassNetwork             Class = "network"
	ClassAuth                Class = "auth"
	ClassQuota               Class = "quota"
	ClassUnsupportedLanguage Class = "unsupported_language"
	ClassInvalidRequest      Class = "invalid_request"
	ClassService             Class = "service"
	ClassUnknown             Class = "unknown"
)

// Error is a classified translation failure.
type Error struct {
	Class      Class
	HTTPStatus int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translation %s error: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("translation %s error: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error wrapping cause.
func NewError(class Class, cause error) *Error {
	return &Error{Class: class, Err: cause}
}

// ClassifyHTTP maps a vendor HTTP status to an error class.
func ClassifyHTTP(status int) Class {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ClassAuth
	case status == http.StatusTooManyRequests:
		return ClassQuota
	case status == http.StatusNotFound:
		return ClassUnsupportedLanguage
	case status == http.StatusBadRequest:
		return ClassInvalidRequest
	case status >= 500:
		return ClassService
	default:
		return ClassUnknown
	}
}

// ClassOf extracts the class from any error, recognizing timeouts and
// context cancellation as network failures.
func ClassOf(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Class
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassNetwork
	}
	return ClassUnknown
}

// userMessages are the responder-facing messages, one per class. The app's
// UI is French-first; the bracket convention around these strings is how the
// UI layer distinguishes failures from translations.
var userMessages = map[Class]string{
	ClassNetwork:             "Erreur réseau. Vérifiez votre connexion.",
	ClassAuth:                "Clé API invalide ou manquante.",
	ClassQuota:               "Quota de traduction dépassé. Réessayez plus tard.",
	ClassUnsupportedLanguage: "Langue non prise en charge.",
	ClassInvalidRequest:      "Requête de traduction invalide.",
	ClassService:             "Service de traduction momentanément indisponible.",
	ClassUnknown:             "Erreur de traduction.",
}

// UserMessage returns the localized message for an error class.
func UserMessage(class Class) string {
	if msg, ok := userMessages[class]; ok {
		return msg
	}
	return userMessages[ClassUnknown]
}

// FormatUserError renders err as the bracket-wrapped string the UI layer
// expects. Callers check IsErrorString on results instead of handling typed
// errors across the API boundary.
func FormatUserError(err error) string {
	return "[" + UserMessage(ClassOf(err)) + "]"
}

// IsErrorString reports whether a translation result is a bracket-wrapped
// failure message rather than a translation.
func IsErrorString(result string) bool {
	return len(result) >= 2 && result[0] == '[' && result[len(result)-1] == ']'
}
