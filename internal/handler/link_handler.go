package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/profilescope/internal/linkage"
	"github.com/hitoshi/profilescope/internal/middleware"
	"github.com/hitoshi/profilescope/internal/model"
)

// LinkDetector はリンク検出のサービスインターフェース。
type LinkDetector interface {
	// SearchUser はユーザー名に一致するアカウントの関連情報を返す。
	SearchUser(ctx context.Context, username string) (*linkage.LinkReport, error)
}

// LinkHandler は関連アカウント照会のHTTPハンドラー。
type LinkHandler struct {
	detector LinkDetector
}

// NewLinkHandler はLinkHandlerを生成する。
func NewLinkHandler(detector LinkDetector) *LinkHandler {
	return &LinkHandler{detector: detector}
}

// linkResponse は検出結果に疑わしさの判定を加えたレスポンス。
type linkResponse struct {
	*linkage.LinkReport
	IsSuspicious   bool `json:"is_suspicious"`
	SuspicionScore int  `json:"suspicion_score"`
}

// GetLinks は関連アカウントの照会を処理する。
// GET /api/accounts/{username}/links
func (h *LinkHandler) GetLinks(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	report, err := h.detector.SearchUser(r.Context(), username)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteAPIError(w, apiErr)
			return
		}
		middleware.WriteAPIError(w, model.NewDatabaseError(err.Error()))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, linkResponse{
		LinkReport:     report,
		IsSuspicious:   linkage.IsSuspicious(report),
		SuspicionScore: linkage.SuspicionScore(report),
	})
}
