package models

// Caller - пользователь UI, от имени которого выполняются запросы к бэкенду
// маркетплейса. Токен передается дальше как есть и здесь не проверяется.
type Caller struct {
	UserID string
	Token  string
}
