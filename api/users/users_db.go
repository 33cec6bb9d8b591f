package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/argon"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

func ListUsers(ctx context.Context, db *sqlite.DB) ([]models.User, error) {
	users := make([]models.User, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&users).Order("last_name ASC", "first_name ASC", "username ASC").Scan(ctx)
	})
	return users, err
}

func GetUser(ctx context.Context, db *sqlite.DB, id string) (models.User, error) {
	var user models.User
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user")
	}
	return user, err
}

// CreateUser hashes the password and inserts the user. A blank username is
// generated from the name.
func CreateUser(ctx context.Context, db *sqlite.DB, in UserInput, enforcePolicy bool) (models.User, error) {
	in = trimInput(in)
	if in.FirstName == "" || in.LastName == "" || in.Password == "" || in.Role == "" {
		return models.User{}, apperr.Validation("firstName, lastName, password and role are required")
	}
	if enforcePolicy {
		if err := ValidatePasswordPolicy(in.Password); err != nil {
			return models.User{}, err
		}
	}
	hash, err := argon.CreateHash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		JobTitle:     in.JobTitle,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireRole(ctx, tx, in.Role); err != nil {
			return err
		}
		if user.Username == "" {
			name, err := GenerateUsername(ctx, tx, in.FirstName, in.LastName)
			if err != nil {
				return err
			}
			user.Username = name
		}
		_, err := tx.NewInsert().Model(&user).Exec(ctx)
		return err
	})
	if err != nil {
		return models.User{}, apperr.FromStorage(err)
	}
	return user, nil
}

// UpdateUser replaces the profile fields. The password is never touched.
func UpdateUser(ctx context.Context, db *sqlite.DB, id string, in UserInput) (models.User, error) {
	in = trimInput(in)
	if in.Username == "" || in.FirstName == "" || in.LastName == "" || in.Role == "" {
		return models.User{}, apperr.Validation("username, firstName, lastName and role are required")
	}
	var user models.User
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireRole(ctx, tx, in.Role); err != nil {
			return err
		}
		res, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("username = ?", in.Username).
			Set("first_name = ?", in.FirstName).
			Set("last_name = ?", in.LastName).
			Set("job_title = ?", in.JobTitle).
			Set("role = ?", in.Role).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := apperr.ExpectAffected(res, "user"); err != nil {
			return err
		}
		return tx.NewSelect().Model(&user).Where("id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.User{}, apperr.FromStorage(err)
	}
	return user, nil
}

// DeleteUser removes a user unless it is the last one left.
func DeleteUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var user models.User
		if err := tx.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("user")
			}
			return err
		}
		count, err := tx.NewSelect().Model((*models.User)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return apperr.Conflict("Cannot delete the last remaining user.")
		}
		if _, err := tx.NewDelete().Model((*models.User)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionDelete, "user", id, user, nil)
	})
}

// SetPassword stores a fresh hash for id.
func SetPassword(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id, password string, enforcePolicy bool) error {
	if strings.TrimSpace(password) == "" {
		return apperr.Validation("password is required")
	}
	if enforcePolicy {
		if err := ValidatePasswordPolicy(password); err != nil {
			return err
		}
	}
	hash, err := argon.CreateHash(password)
	if err != nil {
		return err
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("password_hash = ?", hash).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := apperr.ExpectAffected(res, "user"); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionPasswordSet, "user", id, nil, nil)
	})
}

// GenerateUsername builds lastname + first initial, lower case and limited
// to [a-z0-9], then appends 1, 2, ... until the name is free.
func GenerateUsername(ctx context.Context, tx bun.Tx, firstName, lastName string) (string, error) {
	base := usernameBase(firstName, lastName)
	if base == "" {
		base = "user"
	}
	for i := 0; ; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		taken, err := tx.NewSelect().Model((*models.User)(nil)).Where("username = ? COLLATE NOCASE", candidate).Exists(ctx)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func usernameBase(firstName, lastName string) string {
	initial := ""
	if r := []rune(strings.TrimSpace(firstName)); len(r) > 0 {
		initial = string(r[0])
	}
	return keepAlnum(strings.ToLower(strings.TrimSpace(lastName) + initial))
}

func keepAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLower(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func requireRole(ctx context.Context, tx bun.Tx, role string) error {
	ok, err := tx.NewSelect().Model((*models.Role)(nil)).Where("name = ?", role).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("unknown role %q", role)
	}
	return nil
}

func trimInput(in UserInput) UserInput {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.JobTitle = strings.TrimSpace(in.JobTitle)
	in.Role = strings.TrimSpace(in.Role)
	return in
}
