package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/profilescope/internal/metrics"
	"github.com/hitoshi/profilescope/internal/model"
	"github.com/hitoshi/profilescope/internal/risk"
)

// ProfileFetcher は外部APIからプロフィールを取得する。
type ProfileFetcher interface {
	Fetch(ctx context.Context, username string) (*model.Profile, error)
}

// ProfileSimulator は取得失敗時にプロフィールを生成する。失敗しない。
type ProfileSimulator interface {
	Simulate(username string) *model.Profile
}

// Analyzer はFetcher → (失敗時)Simulator の順にプロフィールを組み立てる。
// 外部APIの失敗は呼び出し元に返さず、必ずProfileを返す。
type Analyzer struct {
	fetcher   ProfileFetcher
	simulator ProfileSimulator
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
}

// NewAnalyzer はAnalyzerを生成する。
func NewAnalyzer(fetcher ProfileFetcher, simulator ProfileSimulator, logger *slog.Logger, collector metrics.MetricsCollector) *Analyzer {
	return &Analyzer{
		fetcher:   fetcher,
		simulator: simulator,
		logger:    logger,
		metrics:   collector,
	}
}

// Analyze はユーザー名を分析してProfileを返す。
// 空白のみのユーザー名はバリデーションエラー（*model.APIError）になる。それ以外でエラーは返らない。
func (a *Analyzer) Analyze(ctx context.Context, username string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewUsernameRequiredError()
	}

	p, err := a.tryFetch(ctx, username)
	if err == nil && p != nil {
		a.metrics.RecordAnalysis(model.DataSourceReal)
		a.logger.Info("profile analyzed",
			slog.String("username", username),
			slog.String("source", model.DataSourceReal),
			slog.Int("risk_score", p.RiskScore),
			slog.String("risk_level", risk.Level(p.RiskScore)),
		)
		return p, nil
	}

	var fetchErr *FetchError
	switch {
	case errors.As(err, &fetchErr):
		a.logger.Info("falling back to simulated profile",
			slog.String("username", username),
			slog.String("reason", string(fetchErr.Reason)),
		)
	case err != nil:
		a.logger.Warn("unexpected profile fetch error, falling back to simulated profile",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}

	p = a.simulator.Simulate(username)
	a.metrics.RecordAnalysis(model.DataSourceSimulated)
	a.logger.Info("profile analyzed",
		slog.String("username", username),
		slog.String("source", model.DataSourceSimulated),
		slog.Int("risk_score", p.RiskScore),
		slog.String("risk_level", risk.Level(p.RiskScore)),
	)
	return p, nil
}

// tryFetch はFetcher内のpanicもエラーとして扱う。
func (a *Analyzer) tryFetch(ctx context.Context, username string) (p *model.Profile, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("profile fetch panicked: %v", r)
		}
	}()
	return a.fetcher.Fetch(ctx, username)
}
