package assignment

import (
	"errors"
	"fmt"

	"github.com/senyabanana/assignment-desk/internal/models"
)

var (
	ErrShortlistFull     = errors.New("shortlist is full")
	ErrNotShortlistable  = errors.New("bid can not be shortlisted in its current state")
	ErrNoShortlistStep   = errors.New("tier has no shortlist stage")
	ErrInterviewsNotUsed = errors.New("interviews are available only for premium assignments")
	ErrNotShortlisted    = errors.New("only shortlisted bids can be invited to an interview")
	ErrAlreadyAssigned   = errors.New("project already has an assigned freelancer")
	ErrCannotSkip        = errors.New("current step can not be skipped")
	ErrTerminalStep      = errors.New("wizard is already at the last step")
	ErrActionInFlight    = errors.New("another action on this bid is in progress")
)

// ValidationError - действие запрещено для типа проекта или состояния предложения.
// Сетевой вызов при этом не выполняется.
type ValidationError struct {
	Action models.BidAction
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StepError - условие перехода на следующий этап не выполнено.
type StepError struct {
	Step    models.StepKey
	Warning string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("can not leave step %q: %s", e.Step, e.Warning)
}
