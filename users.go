package main

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const userColumns = "id, name, email, password_hash, bio, created_at"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new account. The UNIQUE constraint on email decides
// concurrent signups: exactly one insert wins, the rest get ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, name, email, password_hash, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID, user.Name, user.Email, user.PasswordHash, user.Bio, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, errors.Wrap(err, "inserting user")
	}

	return user, nil
}

// UserByEmail returns nil, nil when no account uses the email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE email = ?`), normalizeEmail(email))

	user, err := scanUser(row)
	if err != nil {
		return nil, errors.Wrap(err, "looking up user by email")
	}
	return user, nil
}

// UserByID returns nil, nil when the id is unknown.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?`), id)

	user, err := scanUser(row)
	if err != nil {
		return nil, errors.Wrap(err, "looking up user by id")
	}
	return user, nil
}

// UpdateProfile applies a partial update. Empty name or email leave the
// stored value alone; an empty bio is rejected.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	var bio *string
	if upd.Bio != nil {
		trimmed := strings.TrimSpace(*upd.Bio)
		if trimmed == "" {
			return nil, ErrEmptyBio
		}
		bio = &trimmed
	}

	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name != "" {
			user.Name = name
		}
	}
	if upd.Email != nil {
		if email := normalizeEmail(*upd.Email); email != "" {
			user.Email = email
		}
	}
	if bio != nil {
		user.Bio = *bio
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE users
		SET name = ?, email = ?, bio = ?
		WHERE id = ?`), user.Name, user.Email, user.Bio, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, errors.Wrap(err, "updating profile")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "updating profile")
	}
	if n == 0 {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Bio, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
