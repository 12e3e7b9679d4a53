package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jossiefancies/gatekeeper/internal/database"
	"github.com/jossiefancies/gatekeeper/internal/models"
)

// rowScanner abstracts pgx.Row and pgx.Rows for shared scan helpers
type rowScanner interface {
	Scan(dest ...any) error
}

// AdminUserRepository handles database operations for admin accounts
type AdminUserRepository struct {
	db *database.DB
}

// NewAdminUserRepository creates a new AdminUserRepository
func NewAdminUserRepository(db *database.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

func scanAdminUserRow(row rowScanner) (*models.AdminUser, error) {
	var user models.AdminUser

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsSuperuser, &user.IsActive, &user.LastLoginIP, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// GetByUsername retrieves an admin account by username
func (r *AdminUserRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `
		SELECT id, username, email, password_hash, is_superuser, is_active,
		       last_login_ip, last_login_at, created_at, updated_at
		FROM admin_users
		WHERE username = $1
	`

	return scanAdminUserRow(r.db.Pool.QueryRow(ctx, query, username))
}

// Create inserts a new admin account
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) (*models.AdminUser, error) {
	query := `
		INSERT INTO admin_users (username, email, password_hash, is_superuser, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, password_hash, is_superuser, is_active,
		          last_login_ip, last_login_at, created_at, updated_at
	`

	created, err := scanAdminUserRow(r.db.Pool.QueryRow(
		ctx, query,
		user.Username, user.Email, user.PasswordHash, user.IsSuperuser, user.IsActive,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return created, nil
}

// UpdateLastLogin stamps the most recent successful login
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, userID, ipAddress string) error {
	query := `
		UPDATE admin_users
		SET last_login_ip = $2, last_login_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, ipAddress)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the number of admin accounts
func (r *AdminUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admin users: %w", err)
	}
	return count, nil
}

// CreateIfAbsent inserts the bootstrap account inside a transaction so
// concurrent startups cannot create it twice.
func (r *AdminUserRepository) CreateIfAbsent(ctx context.Context, user *models.AdminUser) (bool, error) {
	created := false

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var count int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users WHERE username = $1`, user.Username).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO admin_users (username, email, password_hash, is_superuser, is_active)
			VALUES ($1, $2, $3, $4, $5)
		`, user.Username, user.Email, user.PasswordHash, user.IsSuperuser, user.IsActive)
		if err != nil {
			return database.MapPostgresError(err)
		}

		created = true
		return nil
	})

	return created, err
}
