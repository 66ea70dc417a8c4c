// Package repository はIdentity Storeの永続化インターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/profilescope/internal/model"
)

// AccountRepository はアカウントとユーザー名変更履歴の読み取りインターフェース。
type AccountRepository interface {
	// FindByUsername は指定ユーザー名のアカウントを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Account, error)

	// CountUsernameChanges は指定アカウントのユーザー名変更回数を返す。
	CountUsernameChanges(ctx context.Context, accountID int64) (int, error)

	// ListUsernamesByEmail は同一メールアドレスを持つ他アカウントのユーザー名を返す。
	// excludeUsername自身は結果に含めない。
	ListUsernamesByEmail(ctx context.Context, email, excludeUsername string) ([]string, error)

	// ListUsernamesByPhone は同一電話番号を持つ他アカウントのユーザー名を返す。
	ListUsernamesByPhone(ctx context.Context, phone, excludeUsername string) ([]string, error)

	// ListUsernameChanges は指定アカウントの変更履歴を古い順に返す。
	ListUsernameChanges(ctx context.Context, accountID int64) ([]model.UsernameChange, error)
}
