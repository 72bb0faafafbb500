// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// ErrorCode classifies rule failures so the transport layer can shape the
// reply without parsing messages.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "validation"
	CodePreconditionFailed  ErrorCode = "precondition_failed"
	CodeMissingPrerequisite ErrorCode = "missing_prerequisite"
	CodeIllegalPlay         ErrorCode = "illegal_play"
)

// ErrEmptyDeck is returned by Draw when both the deck and the discard pile
// are exhausted. Under the conservation invariant this only happens when the
// remaining cards are all held in hands.
var ErrEmptyDeck = errors.New("deck and discard pile are both empty")

// RuleError is a synchronous, state-preserving rejection of a command. It is
// reported only to the issuing client and never broadcast.
type RuleError struct {
	Code    ErrorCode
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func validationf(format string, args ...interface{}) *RuleError {
	return &RuleError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func preconditionf(format string, args ...interface{}) *RuleError {
	return &RuleError{Code: CodePreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func missingPrereqf(format string, args ...interface{}) *RuleError {
	return &RuleError{Code: CodeMissingPrerequisite, Message: fmt.Sprintf(format, args...)}
}

func illegalPlayf(format string, args ...interface{}) *RuleError {
	return &RuleError{Code: CodeIllegalPlay, Message: fmt.Sprintf(format, args...)}
}

// AsRuleError unwraps err into a RuleError if it is one.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
