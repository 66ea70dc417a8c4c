// Package linkage はIdentity Storeを照会し、メール・電話番号の共有や
// ユーザー名変更履歴から関連アカウントを検出する。
package linkage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/profilescope/internal/metrics"
	"github.com/hitoshi/profilescope/internal/model"
	"github.com/hitoshi/profilescope/internal/repository"
)

// 疑わしさスコアの加点ルール
const (
	sharedContactThreshold = 2 // 同一連絡先を持つ他アカウント数がこれ以上で加点
	sharedContactPoints    = 2
	changeCountThreshold   = 3 // ユーザー名変更回数がこれ以上で加点
	changeCountPoints      = 1
	suspiciousThreshold    = 2
)

// 検出結果のメトリクスラベル
const (
	resultFound      = "found"
	resultNotFound   = "not_found"
	resultSuspicious = "suspicious"
	resultError      = "error"
)

// HistoryEntry はユーザー名変更履歴1件のレスポンス表現。
type HistoryEntry struct {
	OldUsername string `json:"old_username"`
	NewUsername string `json:"new_username"`
	ChangedAt   string `json:"changed_at"`
}

// LinkReport はアカウントの関連情報をまとめた検出結果。
type LinkReport struct {
	Success             bool           `json:"success"`
	CurrentUsername     string         `json:"current_username"`
	Email               string         `json:"email"`
	Phone               string         `json:"phone"`
	UsernameChangeCount int            `json:"username_change_count"`
	SameEmailAccounts   []string       `json:"same_email_accounts"`
	SamePhoneAccounts   []string       `json:"same_phone_accounts"`
	UsernameHistory     []HistoryEntry `json:"username_history"`
	TotalLinkedAccounts int            `json:"total_linked_accounts"`
}

// SuspicionScore は検出結果から疑わしさスコアを算出する。nilは0。
func SuspicionScore(r *LinkReport) int {
	if r == nil {
		return 0
	}

	score := 0
	if len(r.SameEmailAccounts) >= sharedContactThreshold {
		score += sharedContactPoints
	}
	if len(r.SamePhoneAccounts) >= sharedContactThreshold {
		score += sharedContactPoints
	}
	if r.UsernameChangeCount >= changeCountThreshold {
		score += changeCountPoints
	}
	return score
}

// IsSuspicious はスコアが閾値以上かを返す。検出に失敗した結果（nil）は常にfalse。
func IsSuspicious(r *LinkReport) bool {
	if r == nil {
		return false
	}
	return SuspicionScore(r) >= suspiciousThreshold
}

// Detector はIdentity Storeを読み取り専用で照会するリンク検出サービス。
type Detector struct {
	repo    repository.AccountRepository
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewDetector はDetectorを生成する。
func NewDetector(repo repository.AccountRepository, logger *slog.Logger, collector metrics.MetricsCollector) *Detector {
	return &Detector{
		repo:    repo,
		logger:  logger,
		metrics: collector,
	}
}

// SearchUser はユーザー名に完全一致するアカウントの関連情報を返す。
// アカウントが存在しない場合は *model.APIError (ACCOUNT_NOT_FOUND) を返す。
func (d *Detector) SearchUser(ctx context.Context, username string) (*LinkReport, error) {
	report, err := d.searchUser(ctx, username)
	switch {
	case report != nil && IsSuspicious(report):
		d.metrics.RecordLinkLookup(resultSuspicious)
	case report != nil:
		d.metrics.RecordLinkLookup(resultFound)
	case isNotFound(err):
		d.metrics.RecordLinkLookup(resultNotFound)
	default:
		d.metrics.RecordLinkLookup(resultError)
		d.logger.Error("link lookup failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}
	return report, err
}

func (d *Detector) searchUser(ctx context.Context, username string) (*LinkReport, error) {
	account, err := d.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(username)
	}

	changeCount, err := d.repo.CountUsernameChanges(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	sameEmail, err := d.repo.ListUsernamesByEmail(ctx, account.Email, account.Username)
	if err != nil {
		return nil, err
	}

	samePhone, err := d.repo.ListUsernamesByPhone(ctx, account.Phone, account.Username)
	if err != nil {
		return nil, err
	}

	changes, err := d.repo.ListUsernameChanges(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryEntry, len(changes))
	for i, c := range changes {
		history[i] = HistoryEntry{
			OldUsername: c.OldUsername,
			NewUsername: c.NewUsername,
			ChangedAt:   model.FormatAnalysisTime(c.ChangedAt),
		}
	}

	report := &LinkReport{
		Success:             true,
		CurrentUsername:     account.Username,
		Email:               account.Email,
		Phone:               account.Phone,
		UsernameChangeCount: changeCount,
		SameEmailAccounts:   nonNil(sameEmail),
		SamePhoneAccounts:   nonNil(samePhone),
		UsernameHistory:     history,
	}
	report.TotalLinkedAccounts = len(report.SameEmailAccounts) + len(report.SamePhoneAccounts) + 1

	return report, nil
}

func isNotFound(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeAccountNotFound
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// String はCLI出力向けの要約を返す。
func (r *LinkReport) String() string {
	return fmt.Sprintf("%s: email=%d phone=%d changes=%d total=%d suspicious=%t",
		r.CurrentUsername,
		len(r.SameEmailAccounts),
		len(r.SamePhoneAccounts),
		r.UsernameChangeCount,
		r.TotalLinkedAccounts,
		IsSuspicious(r),
	)
}
