package repository

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound - запись не найдена.
var ErrNotFound = errors.New("record not found")

// psql - построитель запросов с плейсхолдерами $1, $2 ...
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repositories объединяет все репозитории сервиса.
type Repositories struct {
	Sessions    SessionRepository
	Preferences PreferenceRepository
}

// NewRepositories создает репозитории поверх пула соединений.
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Sessions:    NewPostgresSessionRepository(db),
		Preferences: NewPostgresPreferenceRepository(db),
	}
}
