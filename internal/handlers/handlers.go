package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/utils"
)

// Заголовок с ID пользователя UI. Токен берется из Authorization.
const UserIDHeader = "X-User-Id"

var validate = validator.New()

// callerFromRequest достает пользователя из заголовков запроса.
func callerFromRequest(r *http.Request) (models.Caller, error) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if userID == "" || token == "" {
		return models.Caller{}, models.NewErrorResponse(http.StatusUnauthorized, "missing Authorization or X-User-Id header").WithCode("unauthorized")
	}
	return models.Caller{UserID: userID, Token: token}, nil
}

// decodeBody разбирает и проверяет тело запроса. Пустое тело допустимо.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return models.NewErrorResponse(http.StatusBadRequest, "invalid request body").WithCode("invalid_request")
		}
	}
	return validate.Struct(dst)
}

// respondError пишет ошибку в журнал и отправляет ее клиенту.
func respondError(w http.ResponseWriter, logger *logrus.Logger, err error, fallback string) {
	errorResponse := utils.ToErrorResponse(err, fallback)
	if errorResponse.StatusCode >= http.StatusInternalServerError {
		logger.Errorf("Event ID: REQUEST_FAILED, Description: %s: %v", fallback, err)
	} else {
		logger.Warnf("Event ID: REQUEST_REJECTED, Description: %s: %v", fallback, err)
	}
	utils.SendErrorResponse(w, errorResponse)
}
