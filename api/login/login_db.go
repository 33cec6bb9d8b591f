package login

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/argon"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords.
var ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")

// Usernames are unique ignoring case (idx_users_username_nocase), so every
// lookup compares with NOCASE too.
func findUserByUsername(ctx context.Context, tx bun.Tx, username string) (models.User, error) {
	var user models.User
	err := tx.NewSelect().
		Model(&user).
		Where("username = ? COLLATE NOCASE", strings.TrimSpace(username)).
		Scan(ctx)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func authenticateUser(ctx context.Context, db *sqlite.DB, username, password string) (models.User, error) {
	var user models.User
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = findUserByUsername(ctx, tx, username)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	ok, err := argon.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpsertUserPasswordHash creates username or resets its password and role.
func UpsertUserPasswordHash(ctx context.Context, db *sqlite.DB, username, role, rawPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(rawPassword) == "" {
		return errors.New("password is required")
	}
	hash, err := argon.CreateHash(rawPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findUserByUsername(ctx, tx, username)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.NewInsert().Model(&models.User{
				ID:           uuid.NewString(),
				Username:     username,
				FirstName:    username,
				PasswordHash: hash,
				Role:         role,
				CreatedAt:    now,
				UpdatedAt:    now,
			}).Exec(ctx)
			return err
		case err != nil:
			return err
		}
		_, err = tx.NewUpdate().Model((*models.User)(nil)).
			Set("password_hash = ?", hash).
			Set("role = ?", role).
			Set("updated_at = ?", now).
			Where("id = ?", existing.ID).
			Exec(ctx)
		return err
	})
}
