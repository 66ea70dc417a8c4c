package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SeedAccount はサンプルとして投入するアカウント。
type SeedAccount struct {
	Username string
	Email    string
	Phone    string
}

// SeedUsernameChange はサンプルとして投入するユーザー名変更履歴。
// AccountUsername は履歴を紐づけるアカウントの現在のユーザー名。
type SeedUsernameChange struct {
	AccountUsername string
	OldUsername     string
	NewUsername     string
}

// SampleAccounts は初期化時に投入するアカウント一覧。
// 同一メール・同一電話番号を共有するアカウントを意図的に含む。
var SampleAccounts = []SeedAccount{
	{Username: "john_doe_123", Email: "john@email.com", Phone: "+1234567890"},
	{Username: "sarah_smith", Email: "sarah@email.com", Phone: "+0987654321"},
	{Username: "mike_jones", Email: "mike@email.com", Phone: "+1122334455"},
	{Username: "user123", Email: "john@email.com", Phone: "+1234567890"},
	{Username: "user456", Email: "sarah@email.com", Phone: "+0987654321"},
	{Username: "fake_account1", Email: "fake1@email.com", Phone: "+1111111111"},
	{Username: "fake_account2", Email: "fake1@email.com", Phone: "+1111111111"},
	{Username: "fake_account3", Email: "fake1@email.com", Phone: "+1111111111"},
}

// SampleUsernameChanges は初期化時に投入するユーザー名変更履歴。
var SampleUsernameChanges = []SeedUsernameChange{
	{AccountUsername: "john_doe_123", OldUsername: "john_original", NewUsername: "john_doe_123"},
	{AccountUsername: "john_doe_123", OldUsername: "john_doe_123", NewUsername: "john_new"},
	{AccountUsername: "sarah_smith", OldUsername: "sarah_old", NewUsername: "sarah_smith"},
	{AccountUsername: "mike_jones", OldUsername: "mike_original", NewUsername: "mike_jones"},
}

const (
	insertSeedAccountQuery = `INSERT INTO accounts (username, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING`

	selectSeedAccountQuery = `SELECT a.id,
		(SELECT COUNT(*) FROM username_changes uc WHERE uc.account_id = a.id)
		FROM accounts a WHERE a.username = $1`

	insertSeedChangeQuery = `INSERT INTO username_changes (account_id, old_username, new_username)
		VALUES ($1, $2, $3)`
)

// Seed はサンプルアカウントと変更履歴を1トランザクションで投入する。
// 既存アカウントは上書きせず、履歴はまだ1件も持たないアカウントにのみ追加するため、
// 繰り返し実行しても行が重複しない。
func Seed(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	accountsInserted := 0
	for _, a := range SampleAccounts {
		res, err := tx.ExecContext(ctx, insertSeedAccountQuery, a.Username, a.Email, a.Phone)
		if err != nil {
			return fmt.Errorf("failed to insert account %s: %w", a.Username, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			accountsInserted += int(n)
		}
	}

	type accountState struct {
		id         int64
		hasHistory bool
	}
	states := make(map[string]accountState)

	changesInserted := 0
	for _, c := range SampleUsernameChanges {
		state, ok := states[c.AccountUsername]
		if !ok {
			var count int
			if err := tx.QueryRowContext(ctx, selectSeedAccountQuery, c.AccountUsername).Scan(&state.id, &count); err != nil {
				return fmt.Errorf("failed to look up account %s: %w", c.AccountUsername, err)
			}
			state.hasHistory = count > 0
			states[c.AccountUsername] = state
		}
		if state.hasHistory {
			continue
		}

		if _, err := tx.ExecContext(ctx, insertSeedChangeQuery, state.id, c.OldUsername, c.NewUsername); err != nil {
			return fmt.Errorf("failed to insert username change for %s: %w", c.AccountUsername, err)
		}
		changesInserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	logger.Info("sample data seeded",
		slog.Int("accounts_inserted", accountsInserted),
		slog.Int("username_changes_inserted", changesInserted),
	)
	return nil
}
