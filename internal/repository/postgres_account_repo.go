package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/profilescope/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByUsername は指定ユーザー名のアカウントを取得する。見つからない場合はnilを返す。
// email・phoneがNULLの場合は空文字列として扱う。
func (r *PostgresAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var (
		account      model.Account
		email, phone sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, phone, created_at FROM accounts WHERE username = $1`,
		username,
	).Scan(&account.ID, &account.Username, &email, &phone, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}

	account.Email = email.String
	account.Phone = phone.String
	return &account, nil
}

// CountUsernameChanges は指定アカウントのユーザー名変更回数を返す。
func (r *PostgresAccountRepo) CountUsernameChanges(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM username_changes WHERE account_id = $1`,
		accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count username changes: %w", err)
	}
	return count, nil
}

// ListUsernamesByEmail は同一メールアドレスを持つ他アカウントのユーザー名を返す。
// 空のメールアドレスは照合しない。
func (r *PostgresAccountRepo) ListUsernamesByEmail(ctx context.Context, email, excludeUsername string) ([]string, error) {
	if email == "" {
		return []string{}, nil
	}
	return r.listUsernames(ctx,
		`SELECT username FROM accounts WHERE email = $1 AND username <> $2 ORDER BY id`,
		email, excludeUsername,
	)
}

// ListUsernamesByPhone は同一電話番号を持つ他アカウントのユーザー名を返す。
// 空の電話番号は照合しない。
func (r *PostgresAccountRepo) ListUsernamesByPhone(ctx context.Context, phone, excludeUsername string) ([]string, error) {
	if phone == "" {
		return []string{}, nil
	}
	return r.listUsernames(ctx,
		`SELECT username FROM accounts WHERE phone = $1 AND username <> $2 ORDER BY id`,
		phone, excludeUsername,
	)
}

func (r *PostgresAccountRepo) listUsernames(ctx context.Context, query, value, excludeUsername string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, value, excludeUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked usernames: %w", err)
	}
	defer rows.Close()

	usernames := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan linked username: %w", err)
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked usernames: %w", err)
	}

	return usernames, nil
}

// ListUsernameChanges は指定アカウントの変更履歴を変更日時の昇順で返す。
// 同一日時の場合は登録順とする。
func (r *PostgresAccountRepo) ListUsernameChanges(ctx context.Context, accountID int64) ([]model.UsernameChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, old_username, new_username, changed_at
		 FROM username_changes
		 WHERE account_id = $1
		 ORDER BY changed_at ASC, id ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list username changes: %w", err)
	}
	defer rows.Close()

	changes := []model.UsernameChange{}
	for rows.Next() {
		var c model.UsernameChange
		if err := rows.Scan(&c.ID, &c.AccountID, &c.OldUsername, &c.NewUsername, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan username change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate username changes: %w", err)
	}

	return changes, nil
}
