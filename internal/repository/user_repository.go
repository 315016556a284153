package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/streamline/internal/models"
)

const tableUsers = "users"

var userColumns = []string{"id", "name", "role", "created_at", "last_login_at"}

// UserRepository stores the user directory.
type UserRepository struct {
	db      *sqlx.DB
	dialect string
}

func NewUserRepository(db *sqlx.DB, dialect string) *UserRepository {
	return &UserRepository{
		db:      db,
		dialect: dialect,
	}
}

// Upsert inserts u or, if the id exists, updates name, role and last login.
// The original created_at is kept.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	query, args := entsql.Dialect(r.dialect).
		Insert(tableUsers).
		Columns(userColumns...).
		Values(u.ID, u.Name, u.Role, u.CreatedAt.UTC(), u.LastLoginAt.UTC()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(s *entsql.UpdateSet) {
				s.SetExcluded("name")
				s.SetExcluded("role")
				s.SetExcluded("last_login_at")
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	b := entsql.Dialect(r.dialect)
	query, args := b.Select(userColumns...).
		From(b.Table(tableUsers)).
		Where(entsql.EQ("id", id)).
		Query()

	var u models.User
	if err := r.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// ListByRole returns the users holding role, ordered by name.
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	b := entsql.Dialect(r.dialect)
	selector := b.Select(userColumns...).From(b.Table(tableUsers))
	selector.Where(entsql.EQ("role", role)).
		OrderBy(selector.C("name"), selector.C("id"))
	query, args := selector.Query()

	users := []*models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("query users by role: %w", err)
	}
	return users, nil
}
