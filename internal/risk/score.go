// Package risk はアカウントの不正らしさを0〜100の整数で表すリスクスコアを計算する。
//
// 実データ用と、シミュレーションデータ用の2種類のスコアリングがある。
// どちらも独立したペナルティ項を加算し、最後に100で打ち切る。
package risk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxScore はスコアの上限。
	MaxScore = 100
	// HighRiskThreshold を超えるスコアを高リスクとみなす。
	HighRiskThreshold = 70
	// MediumRiskThreshold を超えるスコアを中リスクとみなす。
	MediumRiskThreshold = 40
)

var (
	digitRunPattern     = regexp.MustCompile(`\d{4,}`)
	separatorRunPattern = regexp.MustCompile(`[._-]{3,}`)
)

// RealMetrics は実データのリスク計算に使う値。
type RealMetrics struct {
	Followers int
	Following int
	Posts     int
	Bio       string
	Verified  bool
}

// ScoreReal は実データからリスクスコアを計算する。
func ScoreReal(m RealMetrics) int {
	score := 0

	// フォロワー比率（フォロー数0のときは評価しない）
	if m.Following > 0 {
		ratio := float64(m.Followers) / float64(m.Following)
		switch {
		case ratio < 0.01:
			score += 40
		case ratio < 0.1:
			score += 25
		case ratio < 0.5:
			score += 10
		}
	}

	// 投稿数
	switch {
	case m.Posts == 0:
		score += 30
	case m.Posts < 5:
		score += 20
	case m.Posts < 10:
		score += 10
	}

	// プロフィールの充実度
	if utf8.RuneCountInString(strings.TrimSpace(m.Bio)) < 10 {
		score += 15
	}

	if !m.Verified {
		score += 5
	}

	return min(MaxScore, score)
}

// ScoreSimulated はシミュレーションデータ用のリスクスコアを計算する。
// ユーザー名のパターンとフォロワー/投稿数の比率のみを使う。
func ScoreSimulated(username string, followers, posts int) int {
	score := 0

	if digitRunPattern.MatchString(username) {
		score += 20
	}
	if separatorRunPattern.MatchString(username) {
		score += 15
	}
	if utf8.RuneCountInString(username) < 5 {
		score += 25
	}

	if posts > 0 {
		ratio := float64(followers) / float64(posts)
		if ratio > 1000 {
			score += 20
		} else if ratio < 1 {
			score += 15
		}
	}

	switch {
	case posts < 5:
		score += 20
	case posts < 10:
		score += 10
	}

	return min(MaxScore, score)
}

// IsHighRisk はスコアが高リスク（70超）かを返す。
func IsHighRisk(score int) bool {
	return score > HighRiskThreshold
}

// Level は画面表示用のリスク区分（high, medium, low）を返す。
func Level(score int) string {
	switch {
	case score > HighRiskThreshold:
		return "high"
	case score > MediumRiskThreshold:
		return "medium"
	default:
		return "low"
	}
}
