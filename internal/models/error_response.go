package models

// ErrorResponse - ошибка, которую API возвращает UI.
// Code - машинно-читаемый признак ошибки, Message - текст для пользователя.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"reason"`
}

// NewErrorResponse создает ошибку с кодом ответа и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: statusCode, Message: message}
}

// WithCode добавляет к ошибке машинно-читаемый признак.
func (e *ErrorResponse) WithCode(code string) *ErrorResponse {
	e.Code = code
	return e
}

func (e *ErrorResponse) Error() string {
	return e.Message
}
