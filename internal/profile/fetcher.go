// Package profile はアカウントのプロフィール分析を提供する。
// 外部プロフィールAPIからの取得、取得失敗時のシミュレーション、
// およびその2つを束ねるAnalyzerを含む。
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/profilescope/internal/metrics"
	"github.com/hitoshi/profilescope/internal/model"
	"github.com/hitoshi/profilescope/internal/risk"
	"github.com/hitoshi/profilescope/internal/security"
)

const (
	// DefaultEndpoint はプロフィール情報APIのエンドポイント。
	DefaultEndpoint = "https://www.instagram.com/api/v1/users/web_profile_info/"
	// DefaultMaxBodySize はレスポンスボディの読み取り上限（2MiB）。
	DefaultMaxBodySize int64 = 2 << 20

	appID     = "936619743392459"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	webOrigin = "https://www.instagram.com"
)

// FailureReason はプロフィール取得失敗の分類。
type FailureReason string

const (
	// ReasonStatus はHTTP 200以外のステータスが返ったことを示す。
	ReasonStatus FailureReason = "status"
	// ReasonDecode はボディが期待した形のJSONでなかったことを示す。
	ReasonDecode FailureReason = "decode"
	// ReasonTransport はタイムアウト、DNS、接続リセットなどの通信エラーを示す。
	ReasonTransport FailureReason = "transport"
)

// FetchError はプロフィール取得の失敗を表す。リトライはしない。
type FetchError struct {
	Reason     FailureReason
	StatusCode int // ReasonStatusのときのみ設定される
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	if e.Reason == ReasonStatus {
		return fmt.Sprintf("profile fetch failed: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("profile fetch failed (%s): %v", e.Reason, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetcherConfig はFetcherの設定パラメータ。
type FetcherConfig struct {
	// Endpoint はプロフィールAPIのURL。空ならDefaultEndpoint。
	Endpoint string
	// MaxBodySize はレスポンスボディの読み取り上限。0以下ならDefaultMaxBodySize。
	MaxBodySize int64
}

// Fetcher は外部プロフィールAPIのクライアント。
// 1回の分析につきGETを1回だけ発行する。
type Fetcher struct {
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
	sanitizer   security.TextSanitizer
	endpoint    string
	maxBodySize int64
	now         func() time.Time
}

// NewFetcher はFetcherを生成する。httpClientは起動時に1度だけ作って渡す。
// タイムアウトはhttpClient側で設定する。
func NewFetcher(
	httpClient *http.Client,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	sanitizer security.TextSanitizer,
	config FetcherConfig,
) *Fetcher {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	maxBodySize := config.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Fetcher{
		httpClient:  httpClient,
		logger:      logger,
		metrics:     collector,
		sanitizer:   sanitizer,
		endpoint:    endpoint,
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// countEdge は件数を持つネストしたオブジェクト（edge_followed_by等）。
type countEdge struct {
	Count *int `json:"count"`
}

// webProfileUser はAPIレスポンスの data.user 部分。
type webProfileUser struct {
	Username                 string     `json:"username"`
	FullName                 string     `json:"full_name"`
	IsPrivate                bool       `json:"is_private"`
	IsVerified               bool       `json:"is_verified"`
	EdgeFollowedBy           *countEdge `json:"edge_followed_by"`
	EdgeFollow               *countEdge `json:"edge_follow"`
	EdgeOwnerToTimelineMedia *countEdge `json:"edge_owner_to_timeline_media"`
	Biography                string     `json:"biography"`
	ProfilePicURLHD          string     `json:"profile_pic_url_hd"`
}

type webProfileResponse struct {
	Data *struct {
		User json.RawMessage `json:"user"`
	} `json:"data"`
}

// requiredUserKeys は data.user に必ず存在しなければならないキー。
// 1つでも欠けていればレスポンスの形が変わったとみなす。
var requiredUserKeys = []string{
	"username",
	"full_name",
	"is_private",
	"is_verified",
	"edge_followed_by",
	"edge_follow",
	"edge_owner_to_timeline_media",
	"biography",
	"profile_pic_url_hd",
}

// Fetch はユーザー名のプロフィールを取得し、リスクスコアを付けたProfileを返す。
// 失敗時は*FetchErrorを返す。
func (f *Fetcher) Fetch(ctx context.Context, username string) (*model.Profile, error) {
	reqURL, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, &FetchError{Reason: ReasonTransport, Err: fmt.Errorf("invalid endpoint: %w", err)}
	}
	q := reqURL.Query()
	q.Set("username", username)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &FetchError{Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-IG-App-ID", appID)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", webOrigin)
	req.Header.Set("Referer", model.ProfileURL(username))

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	f.metrics.RecordFetchLatency(time.Since(start))
	if err != nil {
		f.logger.Warn("profile API request failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, f.fail(&FetchError{Reason: ReasonTransport, Err: err})
	}
	defer resp.Body.Close()

	f.metrics.RecordHTTPStatus(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("profile API returned non-OK status",
			slog.String("username", username),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, f.fail(&FetchError{Reason: ReasonStatus, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, f.fail(&FetchError{Reason: ReasonTransport, Err: fmt.Errorf("failed to read body: %w", err)})
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, f.fail(&FetchError{Reason: ReasonDecode, Err: fmt.Errorf("response body exceeds %d bytes", f.maxBodySize)})
	}

	user, err := decodeUser(body)
	if err != nil {
		f.logger.Warn("failed to decode profile API response",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, f.fail(&FetchError{Reason: ReasonDecode, Err: err})
	}

	followers := *user.EdgeFollowedBy.Count
	following := *user.EdgeFollow.Count
	posts := *user.EdgeOwnerToTimelineMedia.Count

	bio := f.sanitizer.SanitizeText(user.Biography)
	score := risk.ScoreReal(risk.RealMetrics{
		Followers: followers,
		Following: following,
		Posts:     posts,
		Bio:       bio,
		Verified:  user.IsVerified,
	})

	return &model.Profile{
		Username:       user.Username,
		FullName:       f.sanitizer.SanitizeText(user.FullName),
		IsPrivate:      user.IsPrivate,
		IsVerified:     user.IsVerified,
		FollowerCount:  followers,
		FollowingCount: following,
		PostCount:      posts,
		Bio:            bio,
		ProfilePic:     user.ProfilePicURLHD,
		RiskScore:      score,
		IsHighRisk:     risk.IsHighRisk(score),
		DataSource:     model.DataSourceReal,
		AnalysisTime:   model.FormatAnalysisTime(f.now()),
		ProfileURL:     model.ProfileURL(username),
	}, nil
}

func (f *Fetcher) fail(err *FetchError) *FetchError {
	f.metrics.RecordFetchFailure(string(err.Reason))
	return err
}

// decodeUser はレスポンスボディから data.user を取り出し、必須キーの存在を検証する。
func decodeUser(body []byte) (*webProfileUser, error) {
	var envelope webProfileResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if envelope.Data == nil || len(envelope.Data.User) == 0 || string(envelope.Data.User) == "null" {
		return nil, fmt.Errorf("missing data.user")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Data.User, &keys); err != nil {
		return nil, fmt.Errorf("data.user is not an object: %w", err)
	}
	for _, k := range requiredUserKeys {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("missing data.user.%s", k)
		}
	}

	var user webProfileUser
	if err := json.Unmarshal(envelope.Data.User, &user); err != nil {
		return nil, fmt.Errorf("unexpected data.user shape: %w", err)
	}
	for name, edge := range map[string]*countEdge{
		"edge_followed_by":             user.EdgeFollowedBy,
		"edge_follow":                  user.EdgeFollow,
		"edge_owner_to_timeline_media": user.EdgeOwnerToTimelineMedia,
	} {
		if edge == nil || edge.Count == nil {
			return nil, fmt.Errorf("missing data.user.%s.count", name)
		}
	}

	return &user, nil
}
