package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// SessionRepository - интерфейс для работы с сессиями мастера назначения.
type SessionRepository interface {
	GetSession(ctx context.Context, userID, projectID string) (*models.AssignmentSession, error)
	SaveSession(ctx context.Context, session *models.AssignmentSession) error
	DeleteSession(ctx context.Context, userID, projectID string) error
}

// PostgresSessionRepository - реализация SessionRepository для базы данных.
type PostgresSessionRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresSessionRepository создает новый экземпляр PostgresSessionRepository.
func NewPostgresSessionRepository(db *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

var sessionColumns = []string{
	"id", "user_id", "project_id", "tier", "tier_overridden", "current_step",
	"interviewed_bid_ids", "assigned_bid_id", "created_at", "updated_at",
}

func getSessionQuery(userID, projectID string) (string, []interface{}, error) {
	return psql.
		Select(sessionColumns...).
		From("assignment_sessions").
		Where("user_id = ? AND project_id = ?", userID, projectID).
		ToSql()
}

func saveSessionQuery(s *models.AssignmentSession) (string, []interface{}, error) {
	interviewed := s.InterviewedBidIDs
	if interviewed == nil {
		interviewed = []string{}
	}
	return psql.
		Insert("assignment_sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, s.ProjectID, s.Tier, s.TierOverridden, s.CurrentStep,
			interviewed, s.AssignedBidID, s.CreatedAt, s.UpdatedAt).
		Suffix(`ON CONFLICT (user_id, project_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			tier_overridden = EXCLUDED.tier_overridden,
			current_step = EXCLUDED.current_step,
			interviewed_bid_ids = EXCLUDED.interviewed_bid_ids,
			assigned_bid_id = EXCLUDED.assigned_bid_id,
			updated_at = EXCLUDED.updated_at
			RETURNING id, created_at`).
		ToSql()
}

// GetSession возвращает сессию пользователя по проекту или ErrNotFound.
func (r *PostgresSessionRepository) GetSession(ctx context.Context, userID, projectID string) (*models.AssignmentSession, error) {
	query, args, err := getSessionQuery(userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var s models.AssignmentSession
	err = r.DB.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.UserID,
		&s.ProjectID,
		&s.Tier,
		&s.TierOverridden,
		&s.CurrentStep,
		&s.InterviewedBidIDs,
		&s.AssignedBidID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SaveSession создает сессию или обновляет существующую для той же пары
// пользователь/проект. ID и CreatedAt берутся из сохраненной записи.
func (r *PostgresSessionRepository) SaveSession(ctx context.Context, session *models.AssignmentSession) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query, args, err := saveSessionQuery(session)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return r.DB.QueryRow(ctx, query, args...).Scan(&session.ID, &session.CreatedAt)
}

// DeleteSession удаляет сессию. Отсутствие записи ошибкой не считается.
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, userID, projectID string) error {
	query, args, err := psql.
		Delete("assignment_sessions").
		Where("user_id = ? AND project_id = ?", userID, projectID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	_, err = r.DB.Exec(ctx, query, args...)
	return err
}
