package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/profilescope/internal/middleware"
	"github.com/hitoshi/profilescope/internal/model"
)

// maxAnalyzeBodySize は/analyzeのリクエストボディ上限。
const maxAnalyzeBodySize = 1 << 20

// ProfileAnalyzer はプロフィール分析のサービスインターフェース。
type ProfileAnalyzer interface {
	// Analyze はユーザー名を分析する。空のユーザー名は*model.APIErrorを返す。
	Analyze(ctx context.Context, username string) (*model.Profile, error)
}

// AnalyzeHandler はプロフィール分析のHTTPハンドラー。
type AnalyzeHandler struct {
	analyzer ProfileAnalyzer
	logger   *slog.Logger
}

// NewAnalyzeHandler はAnalyzeHandlerを生成する。
func NewAnalyzeHandler(analyzer ProfileAnalyzer, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

type analyzeRequest struct {
	Username string `json:"username"`
}

// Analyze はプロフィール分析を処理する。
// POST /analyze
//
// 外部APIの失敗はシミュレーションで吸収されるため、エラーになるのは
// 空のユーザー名（400）と想定外の失敗（500）のみ。
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("analyze panicked",
				slog.Any("panic", rec),
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			)
			middleware.WriteAPIError(w, model.NewAnalysisError(fmt.Sprint(rec)))
		}
	}()

	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewAnalysisError(err.Error()))
		return
	}

	profile, err := h.analyzer.Analyze(r.Context(), req.Username)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteAPIError(w, apiErr)
			return
		}
		middleware.WriteAPIError(w, model.NewAnalysisError(err.Error()))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, profile)
}
