package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/profilescope/internal/model"
)

// ErrorResponseBody はエラーレスポンスの形式。
// 画面側スクリプトは"error"の文字列をそのまま表示する。
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// WriteJSON は任意の値をJSONレスポンスとして書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse はメッセージを{"error": message}形式で書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponseBody{Error: message})
}

// WriteAPIError はAPIErrorのコードに対応するステータスでエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForCode(apiErr.Code), apiErr.Message)
}

// WriteInternalServerError は内部サーバーエラーのレスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "internal server error")
}

// StatusForCode はエラーコードをHTTPステータスに対応付ける。
func StatusForCode(code string) int {
	switch code {
	case model.ErrCodeUsernameRequired, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
