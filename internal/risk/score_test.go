package risk

import (
	"strings"
	"testing"
)

func TestScoreReal_Example(t *testing.T) {
	// 比率0.005(+40)、投稿0(+30)、bio空(+15)、未認証(+5)
	score := ScoreReal(RealMetrics{Followers: 50, Following: 10000, Posts: 0, Bio: "", Verified: false})
	if score != 90 {
		t.Errorf("score = %d, want 90", score)
	}
	if !IsHighRisk(score) {
		t.Error("score 90 は高リスクであるべき")
	}
}

func TestScoreReal_Terms(t *testing.T) {
	longBio := "Software engineer by day, dreamer by night"

	tests := []struct {
		name string
		m    RealMetrics
		want int
	}{
		{"健全なアカウント", RealMetrics{Followers: 1000, Following: 100, Posts: 50, Bio: longBio, Verified: true}, 0},
		{"フォロー数0は比率を評価しない", RealMetrics{Followers: 0, Following: 0, Posts: 50, Bio: longBio, Verified: true}, 0},
		{"比率0.01ちょうどは+25", RealMetrics{Followers: 1, Following: 100, Posts: 50, Bio: longBio, Verified: true}, 25},
		{"比率0.1ちょうどは+10", RealMetrics{Followers: 10, Following: 100, Posts: 50, Bio: longBio, Verified: true}, 10},
		{"比率0.5ちょうどは加算なし", RealMetrics{Followers: 50, Following: 100, Posts: 50, Bio: longBio, Verified: true}, 0},
		{"投稿1件は+20", RealMetrics{Followers: 100, Following: 100, Posts: 1, Bio: longBio, Verified: true}, 20},
		{"投稿5件は+10", RealMetrics{Followers: 100, Following: 100, Posts: 5, Bio: longBio, Verified: true}, 10},
		{"投稿10件は加算なし", RealMetrics{Followers: 100, Following: 100, Posts: 10, Bio: longBio, Verified: true}, 0},
		{"空白のみのbioは+15", RealMetrics{Followers: 100, Following: 100, Posts: 10, Bio: "          ", Verified: true}, 15},
		{"9文字のbioは+15", RealMetrics{Followers: 100, Following: 100, Posts: 10, Bio: "123456789", Verified: true}, 15},
		{"10文字のbioは加算なし", RealMetrics{Followers: 100, Following: 100, Posts: 10, Bio: "1234567890", Verified: true}, 0},
		{"未認証は+5", RealMetrics{Followers: 100, Following: 100, Posts: 10, Bio: longBio, Verified: false}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreReal(tt.m); got != tt.want {
				t.Errorf("ScoreReal() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreReal_StaysInRange(t *testing.T) {
	for followers := 0; followers <= 2000; followers += 97 {
		for following := 0; following <= 2000; following += 89 {
			for _, posts := range []int{0, 1, 4, 5, 9, 10, 1000} {
				for _, bio := range []string{"", "short", "a biography long enough"} {
					for _, verified := range []bool{true, false} {
						s := ScoreReal(RealMetrics{followers, following, posts, bio, verified})
						if s < 0 || s > MaxScore {
							t.Fatalf("score %d out of range for F=%d G=%d P=%d", s, followers, following, posts)
						}
					}
				}
			}
		}
	}
}

func TestScoreReal_MonotonicAcrossThresholds(t *testing.T) {
	base := RealMetrics{Followers: 1000, Following: 1000, Posts: 100, Bio: "a biography long enough", Verified: true}

	// フォロワー数を減らしていくとスコアは下がらない
	prev := ScoreReal(base)
	for _, f := range []int{1000, 499, 99, 9, 0} {
		m := base
		m.Followers = f
		got := ScoreReal(m)
		if got < prev {
			t.Errorf("followers=%d: score %d < previous %d", f, got, prev)
		}
		prev = got
	}

	// 投稿数を減らしていくとスコアは下がらない
	prev = ScoreReal(base)
	for _, p := range []int{100, 10, 9, 5, 4, 1, 0} {
		m := base
		m.Posts = p
		got := ScoreReal(m)
		if got < prev {
			t.Errorf("posts=%d: score %d < previous %d", p, got, prev)
		}
		prev = got
	}

	m := base
	m.Bio = ""
	if ScoreReal(m) < ScoreReal(base) {
		t.Error("bio を空にしてスコアが下がった")
	}
	m = base
	m.Verified = false
	if ScoreReal(m) < ScoreReal(base) {
		t.Error("未認証にしてスコアが下がった")
	}
}

func TestScoreSimulated_Terms(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		followers int
		posts     int
		want      int
	}{
		{"通常のユーザー名", "sarah_smith", 5000, 100, 0},
		{"4桁の数字連続は+20", "user2024name", 5000, 100, 20},
		{"3桁の数字連続は加算なし", "user202name", 5000, 100, 0},
		{"記号3連続は+15", "sarah._-smith", 5000, 100, 15},
		{"5文字未満は+25", "abcd", 5000, 100, 25},
		{"フォロワー/投稿比が1000超は+20", "sarah_smith", 200000, 100, 20},
		{"フォロワー/投稿比が1未満は+15", "sarah_smith", 50, 100, 15},
		{"投稿0件は比率を評価せず+20", "sarah_smith", 5000, 0, 20},
		{"投稿7件は+10", "sarah_smith", 5000, 7, 10},
		{"数字連続と投稿0件", "a1234", 0, 0, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreSimulated(tt.username, tt.followers, tt.posts); got != tt.want {
				t.Errorf("ScoreSimulated(%q, %d, %d) = %d, want %d", tt.username, tt.followers, tt.posts, got, tt.want)
			}
		})
	}
}

func TestScoreSimulated_Combined(t *testing.T) {
	username := "1234___"
	got := ScoreSimulated(username, 100000, 3)
	// 20 + 15 + 20(比率) + 20(投稿) = 75
	if got != 75 {
		t.Errorf("score = %d, want 75", got)
	}

	got = ScoreSimulated(strings.Repeat("9", 4), 100000, 3)
	// 20 + 25 + 20 + 20 = 85
	if got != 85 {
		t.Errorf("score = %d, want 85", got)
	}

	got = ScoreSimulated("1.._", 100000, 3)
	// 15 + 25 + 20 + 20 = 80
	if got != 80 {
		t.Errorf("score = %d, want 80", got)
	}

	if s := ScoreSimulated("12.._-3456", 100000, 3); s > MaxScore {
		t.Errorf("score = %d exceeds %d", s, MaxScore)
	}
}

func TestIsHighRisk_Strict(t *testing.T) {
	if IsHighRisk(70) {
		t.Error("70 は高リスクではない")
	}
	if !IsHighRisk(71) {
		t.Error("71 は高リスク")
	}
}

func TestLevel(t *testing.T) {
	tests := map[int]string{0: "low", 40: "low", 41: "medium", 70: "medium", 71: "high", 100: "high"}
	for score, want := range tests {
		if got := Level(score); got != want {
			t.Errorf("Level(%d) = %q, want %q", score, got, want)
		}
	}
}
