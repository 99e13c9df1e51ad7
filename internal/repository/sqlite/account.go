package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/model"
	"github.com/sakif/country-explorer/internal/repository"
)

// AccountDB is the accounts view over the same connection pool.
// Obtain one with DB.Accounts().
type AccountDB struct {
	conn *sql.DB
}

// compile-time check that *AccountDB implements repository.AccountRepository
var _ repository.AccountRepository = (*AccountDB)(nil)

// Accounts returns the account repository backed by this database.
func (db *DB) Accounts() *AccountDB {
	return &AccountDB{conn: db.conn}
}

// Create inserts account. ID and CreatedAt must already be set.
func (a *AccountDB) Create(ctx context.Context, account *model.Account) error {
	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting account (email=%s): %w", account.Email, err)
	}
	return nil
}

// GetByEmail returns the newest account registered with email.
// rowid breaks ties between accounts created within the same instant.
func (a *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := a.conn.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM accounts WHERE email = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		email,
	)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account by email %s: %w", email, err)
	}
	return acc, nil
}

// GetByID returns the account with the given id.
func (a *AccountDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := a.conn.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM accounts WHERE id = ?`,
		id,
	)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return acc, nil
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var acc model.Account
	if err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.Name,
		&acc.PasswordHash,
		&acc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &acc, nil
}
