package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository resolves operator accounts for the admin surface. Account
// management itself lives outside the engine.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, role, created_at
		FROM users WHERE email = $1`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
