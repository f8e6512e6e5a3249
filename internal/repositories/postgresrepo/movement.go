package postgresrepo

import (
	"context"
	"fmt"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"

	"github.com/jmoiron/sqlx"
)

type MovementRepo struct {
	db *sqlx.DB
}

func NewMovementRepo(db *sqlx.DB) *MovementRepo {
	return &MovementRepo{db: db}
}

// StartSession pins a pooled connection for the caller's unit of work
func (r *MovementRepo) StartSession(ctx context.Context) (repositories.Session, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return NewSession(conn), nil
}

func (r *MovementRepo) UpdateStatus(ctx context.Context, id string, status models.StatusResult) (int64, error) {
	query := `UPDATE movements SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update movement status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *MovementRepo) FindCorrelated(ctx context.Context, filter models.CorrelationFilter) ([]models.Movement, error) {
	query := `
		SELECT id, credit_card_number, amount, destination, transaction_datetime, location, type, status
		FROM movements
		WHERE credit_card_number = $1
			AND location <> $2
			AND transaction_datetime > $3
			AND status IS DISTINCT FROM $4
		ORDER BY transaction_datetime ASC
	`

	movements := make([]models.Movement, 0)
	err := r.db.SelectContext(ctx, &movements, query,
		filter.CreditCardNumber,
		filter.ExcludeLocation,
		filter.After,
		models.StatusCompensation,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find movements: %w", err)
	}

	return movements, nil
}
