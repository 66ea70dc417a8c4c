package model

import "time"

// データソースのラベル。
const (
	DataSourceReal      = "real"
	DataSourceSimulated = "simulated"
)

// AnalysisTimeLayout はProfile.AnalysisTimeの書式。
const AnalysisTimeLayout = "2006-01-02 15:04:05"

// Profile は1リクエストごとに生成されるアカウント分析結果を表す。
// 永続化されず、レスポンス送信後に破棄される。
type Profile struct {
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	IsPrivate      bool   `json:"is_private"`
	IsVerified     bool   `json:"is_verified"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	PostCount      int    `json:"post_count"`
	Bio            string `json:"bio"`
	ProfilePic     string `json:"profile_pic"`
	RiskScore      int    `json:"risk_score"`
	IsHighRisk     bool   `json:"is_high_risk"`
	DataSource     string `json:"data_source"`
	AnalysisTime   string `json:"analysis_time"`
	ProfileURL     string `json:"instagram_url"`
	Note           string `json:"note,omitempty"`
}

// FormatAnalysisTime は分析時刻をレスポンス用の文字列に整形する。
func FormatAnalysisTime(t time.Time) string {
	return t.Format(AnalysisTimeLayout)
}

// ProfileURL はユーザー名に対応する正規のプロフィールURLを返す。
func ProfileURL(username string) string {
	return "https://www.instagram.com/" + username + "/"
}
