// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は呼び出し元に返すエラーを表す。
// Codeに応じてHTTPステータスが決まり、Messageはそのままレスポンスの"error"に入る。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, identity, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUsernameRequired = "USERNAME_REQUIRED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	ErrCodeAnalysisFailed   = "ANALYSIS_FAILED"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

// NewUsernameRequiredError はユーザー名未指定エラーを生成する。
func NewUsernameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameRequired,
		Message:  "Username is required",
		Category: "validation",
	}
}

// NewAccountNotFoundError はIdentity Storeにアカウントが存在しない場合のエラーを生成する。
func NewAccountNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("User '%s' not found in database", username),
		Category: "identity",
	}
}

// NewAnalysisError は/analyzeの想定外エラーを生成する。
func NewAnalysisError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAnalysisFailed,
		Message:  fmt.Sprintf("Analysis error: %s", reason),
		Category: "system",
	}
}

// NewDatabaseError はIdentity Storeへの問い合わせ失敗エラーを生成する。
func NewDatabaseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeDatabaseError,
		Message:  fmt.Sprintf("Database error: %s", reason),
		Category: "system",
	}
}
