package model

import "time"

// Account はIdentity Storeに保存されたアカウントを表す。
// usernameは一意だが、emailとphoneは複数アカウントで共有されうる。
type Account struct {
	ID        int64
	Username  string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// UsernameChange はユーザー名変更の履歴1件を表す。追記のみ。
type UsernameChange struct {
	ID          int64
	AccountID   int64
	OldUsername string
	NewUsername string
	ChangedAt   time.Time
}
