package repository // repository defines data access for users

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/cinema-ticketing/internal/model" // User
)

// UserRepo provides read access to users.
type UserRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByID returns the user or model.ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := pick(ctx, r.db).QueryRowContext(ctx, `SELECT id, email, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Role)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
