package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// PreferenceRepository - интерфейс для работы со скрытыми баннерами пользователя.
type PreferenceRepository interface {
	ListDismissals(ctx context.Context, userID string) ([]models.Dismissal, error)
	Dismiss(ctx context.Context, userID, key string) (*models.Dismissal, error)
	IsDismissed(ctx context.Context, userID, key string) (bool, error)
	Restore(ctx context.Context, userID, key string) error
}

// PostgresPreferenceRepository - реализация PreferenceRepository для базы данных.
type PostgresPreferenceRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresPreferenceRepository создает новый экземпляр PostgresPreferenceRepository.
func NewPostgresPreferenceRepository(db *pgxpool.Pool) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{DB: db}
}

// ListDismissals возвращает все скрытые пользователем баннеры.
func (r *PostgresPreferenceRepository) ListDismissals(ctx context.Context, userID string) ([]models.Dismissal, error) {
	query, args, err := psql.
		Select("user_id", "key", "dismissed_at").
		From("user_dismissals").
		Where("user_id = ?", userID).
		OrderBy("dismissed_at DESC", "key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dismissals := []models.Dismissal{}
	for rows.Next() {
		var d models.Dismissal
		if err := rows.Scan(&d.UserID, &d.Key, &d.DismissedAt); err != nil {
			return nil, err
		}
		dismissals = append(dismissals, d)
	}
	return dismissals, rows.Err()
}

func dismissQuery(userID, key string, at time.Time) (string, []interface{}, error) {
	return psql.
		Insert("user_dismissals").
		Columns("user_id", "key", "dismissed_at").
		Values(userID, key, at).
		Suffix("ON CONFLICT (user_id, key) DO UPDATE SET dismissed_at = user_dismissals.dismissed_at RETURNING dismissed_at").
		ToSql()
}

// Dismiss скрывает баннер. Повторный вызов сохраняет время первого скрытия.
func (r *PostgresPreferenceRepository) Dismiss(ctx context.Context, userID, key string) (*models.Dismissal, error) {
	query, args, err := dismissQuery(userID, key, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	d := models.Dismissal{UserID: userID, Key: key}
	if err := r.DB.QueryRow(ctx, query, args...).Scan(&d.DismissedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// IsDismissed сообщает, скрыт ли баннер.
func (r *PostgresPreferenceRepository) IsDismissed(ctx context.Context, userID, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM user_dismissals WHERE user_id = $1 AND key = $2)`
	err := r.DB.QueryRow(ctx, query, userID, key).Scan(&exists)
	return exists, err
}

// Restore снова показывает баннер.
func (r *PostgresPreferenceRepository) Restore(ctx context.Context, userID, key string) error {
	query, args, err := psql.
		Delete("user_dismissals").
		Where("user_id = ? AND key = ?", userID, key).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	_, err = r.DB.Exec(ctx, query, args...)
	return err
}
