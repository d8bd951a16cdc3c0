package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/uptrace/bun"
)

// BaseRepository provides common repository functionality
type BaseRepository struct {
	db             *bun.DB
	defaultTimeout time.Duration
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *bun.DB) *BaseRepository {
	return &BaseRepository{
		db:             db,
		defaultTimeout: config.DefaultQueryTimeout,
	}
}

// RepositoryError represents a repository-level error
type RepositoryError struct {
	Operation string
	Entity    string
	Err       error
}

func (re *RepositoryError) Error() string {
	return fmt.Sprintf("repository error during %s for %s: %v", re.Operation, re.Entity, re.Err)
}

func (re *RepositoryError) Unwrap() error {
	return re.Err
}

// NotFoundError represents an entity not found error
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", nfe.Entity, nfe.ID)
}

// ConflictError represents a data conflict error, including the case where a
// contended row update exhausted its retry budget.
type ConflictError struct {
	Entity string
	Detail string
}

func (ce *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", ce.Entity, ce.Detail)
}

// ValidationError represents a synchronously rejected invariant violation.
// Nothing is applied when one is returned.
type ValidationError struct {
	Rule   string
	Detail string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", ve.Rule, ve.Detail)
}

// InvalidTransitionError represents a state-machine transition outside the
// explicit graph.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (ite *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", ite.Entity, ite.From, ite.To)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// WithTimeout creates a context with the default timeout
func (br *BaseRepository) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, br.defaultTimeout)
}

// HandleError standardizes error handling across repositories
func (br *BaseRepository) HandleError(operation, entity string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: "unknown"}
	}

	return &RepositoryError{
		Operation: operation,
		Entity:    entity,
		Err:       err,
	}
}

// HandleErrorWithID standardizes error handling with specific ID
func (br *BaseRepository) HandleErrorWithID(operation, entity string, id interface{}, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: id}
	}

	return &RepositoryError{
		Operation: operation,
		Entity:    entity,
		Err:       err,
	}
}

// Transaction executes a function within a database transaction
func (br *BaseRepository) Transaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	timeoutCtx, cancel := br.WithTimeout(ctx)
	defer cancel()

	return br.db.RunInTx(timeoutCtx, nil, fn)
}

// TxInserter is the slice of transaction capability mutation closures need:
// appending audit rows atomically with the update they describe.
type TxInserter interface {
	Insert(ctx context.Context, model interface{}) error
}

type bunTxInserter struct {
	tx bun.Tx
}

func (b bunTxInserter) Insert(ctx context.Context, model interface{}) error {
	_, err := b.tx.NewInsert().Model(model).Exec(ctx)
	return err
}
