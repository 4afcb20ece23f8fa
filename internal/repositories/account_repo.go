package repositories

import (
	"context"
	"time"

	"github.com/bastionauth/bastion/internal/database"
	"github.com/bastionauth/bastion/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository handles database operations for accounts, including the
// failure ledger. All counter mutations happen inside single UPDATE
// statements so concurrent requests against the same account never lose
// updates.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

const accountColumns = `id, email, password_hash, name, role, failed_attempts, last_failed_at, suspended_until, created_at, updated_at`

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var lastFailedAt, suspendedUntil *time.Time

	err := scanner.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.Name,
		&account.Role, &account.FailedAttempts,
		&lastFailedAt, &suspendedUntil,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.LastFailedAt = lastFailedAt
	account.SuspendedUntil = suspendedUntil

	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	if account.Role == "" {
		account.Role = "user"
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.Name,
		account.Role, account.CreatedAt, account.UpdatedAt,
	))
}

// RecordFailure increments the failure counter and stamps the failure time
// in one atomic statement. When the post-increment count reaches the
// threshold the suspension window is (re)opened in the same statement.
// Returns the account as stored after the update.
func (r *AccountRepository) RecordFailure(ctx context.Context, id string, threshold int, suspension time.Duration) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    last_failed_at = now(),
		    suspended_until = CASE
		        WHEN failed_attempts + 1 >= $2 THEN now() + $3
		        ELSE suspended_until
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query, id, threshold, suspension))
}

// ResetCounters clears the failure ledger after a successful login.
func (r *AccountRepository) ResetCounters(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0,
		    last_failed_at = NULL,
		    suspended_until = NULL,
		    updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
