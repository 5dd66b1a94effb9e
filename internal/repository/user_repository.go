package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/harborhq/harbor/internal/model"
	"github.com/harborhq/harbor/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,roles,is_active,token_version,created_at,updated_at"

// Create inserts a user and returns its ID. New accounts start active with
// token_version 0.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, roles []string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, roles) VALUES (?,?,?,?)",
		strings.TrimSpace(name), email, hash, strings.Join(roles, ","))
	if err != nil {
		// MySQL 1062 = duplicate key, here only possible on the email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// BumpTokenVersion advances the user's revocation counter by one. The
// increment runs inside the database, so concurrent logouts never lose an
// update; every refresh token minted before the bump becomes unusable.
func (r *UserRepo) BumpTokenVersion(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET token_version = token_version + 1 WHERE id=?", id)
	return err
}

// SetActive flips the account status. Outstanding access tokens keep working
// until expiry; the next refresh re-checks the flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u     model.User
		roles string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &roles,
		&u.IsActive, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if roles != "" {
		u.Roles = strings.Split(roles, ",")
	}
	return u, nil
}
