package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"

	"github.com/jmoiron/sqlx"
)

type Session struct {
	conn  *sqlx.Conn
	tx    *sqlx.Tx
	ended bool
}

func NewSession(conn *sqlx.Conn) *Session {
	return &Session{conn: conn}
}

func (s *Session) StartTransaction(ctx context.Context) error {
	if s.ended {
		return repositories.ErrSessionEnded
	}
	if s.tx != nil {
		return repositories.ErrTransactionInProgress
	}

	tx, err := s.conn.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

func (s *Session) InTransaction() bool {
	return s.tx != nil
}

func (s *Session) Create(ctx context.Context, movement models.Movement) error {
	if s.tx == nil {
		return repositories.ErrNoTransaction
	}

	query := `
		INSERT INTO movements
		(id, credit_card_number, amount, destination, transaction_datetime, location, type, status)
		VALUES (:id, :credit_card_number, :amount, :destination, :transaction_datetime, :location, :type, :status)
	`
	if _, err := s.tx.NamedExecContext(ctx, query, movement); err != nil {
		return fmt.Errorf("failed to create movement: %w", err)
	}
	return nil
}

// CommitTransaction finishes the transaction whatever the outcome: a failed
// commit leaves nothing to abort.
func (s *Session) CommitTransaction(ctx context.Context) error {
	if s.tx == nil {
		return repositories.ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Session) AbortTransaction(ctx context.Context) error {
	if s.tx == nil {
		return repositories.ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil

	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to abort transaction: %w", err)
	}
	return nil
}

func (s *Session) EndSession(ctx context.Context) error {
	if s.ended {
		return nil
	}
	s.ended = true

	var errs []error
	if s.tx != nil {
		if err := s.AbortTransaction(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release connection: %w", err))
	}
	return errors.Join(errs...)
}
