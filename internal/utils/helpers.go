package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/assignment"
	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/models"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, errorResponse *models.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errorResponse.StatusCode)
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		logrus.Errorf("Event ID: RESPONSE_WRITE_FAILED, Description: %v", err)
	}
}

// SendJSON отправляет ответ в формате JSON
func SendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Event ID: RESPONSE_WRITE_FAILED, Description: %v", err)
	}
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 100 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [1:100]")
		}
	} else {
		limit = 50
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	}

	return limit, offset, nil
}

// ValidationMessage собирает ошибки validator в одну строку.
func ValidationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "required_without":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s", fe.Field(), fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// ToErrorResponse переводит ошибку сервиса в ответ API. Неизвестные ошибки
// становятся 500 с сообщением fallback.
func ToErrorResponse(err error, fallback string) *models.ErrorResponse {
	var (
		errorResponse *models.ErrorResponse
		validationErr *assignment.ValidationError
		stepErr       *assignment.StepError
		backendErr    *marketplace.BackendError
		fieldErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &errorResponse):
		return errorResponse
	case errors.As(err, &validationErr):
		return models.NewErrorResponse(http.StatusUnprocessableEntity, validationErr.Reason).WithCode("action_not_allowed")
	case errors.As(err, &stepErr):
		return models.NewErrorResponse(http.StatusUnprocessableEntity, stepErr.Warning).WithCode("step_incomplete")
	case errors.As(err, &fieldErrs):
		return models.NewErrorResponse(http.StatusBadRequest, ValidationMessage(fieldErrs)).WithCode("invalid_request")
	case errors.Is(err, assignment.ErrActionInFlight):
		return models.NewErrorResponse(http.StatusConflict, err.Error()).WithCode("action_in_flight")
	case errors.Is(err, assignment.ErrShortlistFull),
		errors.Is(err, assignment.ErrAlreadyAssigned):
		return models.NewErrorResponse(http.StatusConflict, err.Error()).WithCode("conflict")
	case errors.Is(err, assignment.ErrNotShortlistable),
		errors.Is(err, assignment.ErrNoShortlistStep),
		errors.Is(err, assignment.ErrInterviewsNotUsed),
		errors.Is(err, assignment.ErrNotShortlisted),
		errors.Is(err, assignment.ErrCannotSkip),
		errors.Is(err, assignment.ErrTerminalStep):
		return models.NewErrorResponse(http.StatusUnprocessableEntity, err.Error()).WithCode("invalid_step")
	case errors.Is(err, marketplace.ErrUnavailable):
		return models.NewErrorResponse(http.StatusServiceUnavailable, marketplace.GenericFailure).WithCode("backend_unavailable")
	case errors.As(err, &backendErr):
		status := http.StatusBadGateway
		if backendErr.StatusCode >= 400 && backendErr.StatusCode < 500 {
			status = backendErr.StatusCode
		}
		return models.NewErrorResponse(status, backendErr.Message).WithCode("backend_error")
	default:
		return models.NewErrorResponse(http.StatusInternalServerError, fallback)
	}
}
