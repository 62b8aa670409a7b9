package sqlite

import (
	"context"
	"errors"

	"github.com/kartenwerk/geopunkt/internal/server/domain"
	"github.com/kartenwerk/geopunkt/internal/server/store"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) GetByEmail(ctx context.Context, email string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT email, username, password_hash, created_at
		FROM credentials
		WHERE email = :email`,
		namedArg("email", email),
	)

	var c domain.Credential
	if err := row.Scan(&c.Email, &c.Username, &c.PasswordHash, &c.CreatedAt); err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	return c, nil
}

func (r *credentialsRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM credentials WHERE username = :username`,
		namedArg("username", username),
	)

	var count int64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *credentialsRepo) Create(ctx context.Context, c domain.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (email, username, password_hash)
		VALUES (:email, :username, :password_hash)`,
		namedArg("email", c.Email),
		namedArg("username", c.Username),
		namedArg("password_hash", c.PasswordHash),
	)
	if err != nil {
		var ce *store.ConstraintError
		if errors.As(mapConstraint(err), &ce) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}
