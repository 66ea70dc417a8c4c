package profile

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/hitoshi/profilescope/internal/model"
	"github.com/hitoshi/profilescope/internal/risk"
)

// SimulationNote はシミュレーション結果に付与する注記。
const SimulationNote = "Using realistic simulation. Enable VPN or try different network for real data."

var (
	prominentPattern = regexp.MustCompile(`official|real|verified`)
	fourDigitPattern = regexp.MustCompile(`\d{4}`)
)

// knownNames はユーザー名に含まれる名前から表示名を決める対応表。先頭から順に照合する。
var knownNames = []struct {
	key  string
	name string
}{
	{"harini", "Harini Kannan"},
	{"rahul", "Rahul Sharma"},
	{"priya", "Priya Patel"},
	{"arjun", "Arjun Kumar"},
	{"sneha", "Sneha Reddy"},
	{"vikram", "Vikram Singh"},
}

var cannedBios = []string{
	"Digital creator • Photography enthusiast 📸",
	"Just living my best life 🌟",
	"Travel • Food • Fashion ✈️🍕👗",
	"Software engineer by day, dreamer by night 💻",
	"Making memories one post at a time 📷",
	"Life is what happens between posts 🌈",
	"",
}

// Simulator はユーザー名だけからそれらしいプロフィールを生成する。
// 精度を目指したものではない。失敗しない。
type Simulator struct {
	mu  sync.Mutex // *rand.Rand はgoroutineセーフではない
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator は乱数源と時計を受け取ってSimulatorを生成する。
// テストでは固定シードのrand.Randを渡すと出力が決定的になる。
func NewSimulator(rng *rand.Rand, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{rng: rng, now: now}
}

// Simulate はシミュレーションによるProfileを返す。
func (s *Simulator) Simulate(username string) *model.Profile {
	s.mu.Lock()
	followers := s.estimateFollowers(username)
	posts := s.estimatePosts(username)
	isPrivate := s.rng.IntN(2) == 1
	isVerified := s.rng.Float64() < 0.1
	following := s.intRange(followers/2, followers*2)
	bio := cannedBios[s.rng.IntN(len(cannedBios))]
	s.mu.Unlock()

	score := risk.ScoreSimulated(username, followers, posts)

	return &model.Profile{
		Username:       username,
		FullName:       displayName(username),
		IsPrivate:      isPrivate,
		IsVerified:     isVerified,
		FollowerCount:  followers,
		FollowingCount: following,
		PostCount:      posts,
		Bio:            bio,
		ProfilePic:     fmt.Sprintf("https://picsum.photos/200/200?random=%d", xxhash.Sum64String(username)),
		RiskScore:      score,
		IsHighRisk:     risk.IsHighRisk(score),
		DataSource:     model.DataSourceSimulated,
		AnalysisTime:   model.FormatAnalysisTime(s.now()),
		ProfileURL:     model.ProfileURL(username),
		Note:           SimulationNote,
	}
}

func (s *Simulator) estimateFollowers(username string) int {
	switch {
	case prominentPattern.MatchString(strings.ToLower(username)):
		return s.intRange(50000, 500000)
	case fourDigitPattern.MatchString(username) || utf8.RuneCountInString(username) < 6:
		return s.intRange(100, 1000)
	default:
		return s.intRange(1000, 50000)
	}
}

func (s *Simulator) estimatePosts(username string) int {
	if utf8.RuneCountInString(username) < 5 {
		return s.intRange(0, 10)
	}
	return s.intRange(10, 500)
}

// intRange は[lo, hi]から一様に整数を引く。
func (s *Simulator) intRange(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

func displayName(username string) string {
	lower := strings.ToLower(username)
	for _, kn := range knownNames {
		if strings.Contains(lower, kn.key) {
			return kn.name
		}
	}
	return titleCase(username)
}

// titleCase は英字の連なりごとに先頭を大文字、残りを小文字にする。
// 数字や記号は区切りとして扱う（"john_doe_123" → "John_Doe_123"）。
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if inWord {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			inWord = true
			continue
		}
		inWord = false
		b.WriteRune(r)
	}
	return b.String()
}
