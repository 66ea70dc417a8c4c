package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/profilescope/internal/metrics"
	"github.com/hitoshi/profilescope/internal/model"
	"github.com/hitoshi/profilescope/internal/risk"
	"github.com/hitoshi/profilescope/internal/security"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestFetcher(t *testing.T, server *httptest.Server, buf *bytes.Buffer) *Fetcher {
	t.Helper()
	f := NewFetcher(server.Client(), newTestLogger(buf), metrics.Nop{}, security.NewTextSanitizer(), FetcherConfig{
		Endpoint: server.URL + "/api/v1/users/web_profile_info/",
	})
	f.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return f
}

const sampleProfileJSON = `{
  "data": {
    "user": {
      "username": "sarah_smith",
      "full_name": "Sarah Smith",
      "is_private": false,
      "is_verified": false,
      "edge_followed_by": {"count": 50},
      "edge_follow": {"count": 10000},
      "edge_owner_to_timeline_media": {"count": 0},
      "biography": "",
      "profile_pic_url_hd": "https://cdn.example.com/sarah.jpg"
    }
  },
  "status": "ok"
}`

func TestFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("username"); got != "sarah_smith" {
			t.Errorf("username = %q, want sarah_smith", got)
		}
		if got := r.Header.Get("X-IG-App-ID"); got != "936619743392459" {
			t.Errorf("X-IG-App-ID = %q", got)
		}
		if got := r.Header.Get("Referer"); got != "https://www.instagram.com/sarah_smith/" {
			t.Errorf("Referer = %q", got)
		}
		if got := r.Header.Get("Origin"); got != "https://www.instagram.com" {
			t.Errorf("Origin = %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleProfileJSON)
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := newTestFetcher(t, server, &buf)

	p, err := f.Fetch(context.Background(), "sarah_smith")
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}

	if p.DataSource != model.DataSourceReal {
		t.Errorf("DataSource = %q, want %q", p.DataSource, model.DataSourceReal)
	}
	if p.FollowerCount != 50 || p.FollowingCount != 10000 || p.PostCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 50/10000/0", p.FollowerCount, p.FollowingCount, p.PostCount)
	}
	// 40(比率) + 30(投稿) + 15(bio) + 5(未認証)
	if p.RiskScore != 90 {
		t.Errorf("RiskScore = %d, want 90", p.RiskScore)
	}
	if !p.IsHighRisk {
		t.Error("IsHighRisk = false, want true")
	}
	if p.AnalysisTime != "2026-10-16 09:30:00" {
		t.Errorf("AnalysisTime = %q", p.AnalysisTime)
	}
	if p.ProfileURL != "https://www.instagram.com/sarah_smith/" {
		t.Errorf("ProfileURL = %q", p.ProfileURL)
	}
	if p.ProfilePic != "https://cdn.example.com/sarah.jpg" {
		t.Errorf("ProfilePic = %q", p.ProfilePic)
	}
	if p.Note != "" {
		t.Errorf("Note = %q, want empty", p.Note)
	}
}

func TestFetcher_Fetch_SanitizesText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"user":{
			"username":"x_user","full_name":"<b>X</b>","is_private":true,"is_verified":true,
			"edge_followed_by":{"count":10},"edge_follow":{"count":10},
			"edge_owner_to_timeline_media":{"count":20},
			"biography":"<script>alert(1)</script>hello there friends","profile_pic_url_hd":""}}}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	p, err := newTestFetcher(t, server, &buf).Fetch(context.Background(), "x_user")
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if strings.Contains(p.Bio, "<script") || !strings.Contains(p.Bio, "hello there friends") {
		t.Errorf("Bio = %q", p.Bio)
	}
	if p.FullName != "X" {
		t.Errorf("FullName = %q, want X", p.FullName)
	}
	if !p.IsPrivate || !p.IsVerified {
		t.Error("フラグが反映されていない")
	}
}

func TestFetcher_Fetch_PreservesPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"user":{
			"username":"toms_cafe","full_name":"Tom's Café","is_private":false,"is_verified":false,
			"edge_followed_by":{"count":500},"edge_follow":{"count":300},
			"edge_owner_to_timeline_media":{"count":40},
			"biography":"Food & \"drinks\" <3 since 1999","profile_pic_url_hd":""}}}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	p, err := newTestFetcher(t, server, &buf).Fetch(context.Background(), "toms_cafe")
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if p.FullName != "Tom's Café" {
		t.Errorf("FullName = %q, want %q", p.FullName, "Tom's Café")
	}
	if want := `Food & "drinks" <3 since 1999`; p.Bio != want {
		t.Errorf("Bio = %q, want %q", p.Bio, want)
	}

	want := risk.ScoreReal(risk.RealMetrics{Followers: 500, Following: 300, Posts: 40, Bio: p.Bio})
	if p.RiskScore != want {
		t.Errorf("RiskScore = %d, want %d (返却したbioで算出した値)", p.RiskScore, want)
	}
}

func TestFetcher_Fetch_NonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			var buf bytes.Buffer
			_, err := newTestFetcher(t, server, &buf).Fetch(context.Background(), "someone")

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FetchError", err)
			}
			if fe.Reason != ReasonStatus || fe.StatusCode != status {
				t.Errorf("FetchError = %+v", fe)
			}
			if !strings.Contains(buf.String(), `"http_status":`) {
				t.Errorf("ステータスがログに出力されていない: %s", buf.String())
			}
		})
	}
}

func TestFetcher_Fetch_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"JSONでない", `<html>login required</html>`},
		{"dataがない", `{"status":"ok"}`},
		{"userがnull", `{"data":{"user":null}}`},
		{"userがオブジェクトでない", `{"data":{"user":[1,2]}}`},
		{"edge_followがない", `{"data":{"user":{"username":"a","full_name":"","is_private":false,"is_verified":false,
			"edge_followed_by":{"count":1},"edge_owner_to_timeline_media":{"count":1},"biography":"","profile_pic_url_hd":""}}}`},
		{"countがnull", `{"data":{"user":{"username":"a","full_name":"","is_private":false,"is_verified":false,
			"edge_followed_by":{"count":null},"edge_follow":{"count":1},"edge_owner_to_timeline_media":{"count":1},"biography":"","profile_pic_url_hd":""}}}`},
		{"countが文字列", `{"data":{"user":{"username":"a","full_name":"","is_private":false,"is_verified":false,
			"edge_followed_by":{"count":"many"},"edge_follow":{"count":1},"edge_owner_to_timeline_media":{"count":1},"biography":"","profile_pic_url_hd":""}}}`},
		{"biographyがない", `{"data":{"user":{"username":"a","full_name":"","is_private":false,"is_verified":false,
			"edge_followed_by":{"count":1},"edge_follow":{"count":1},"edge_owner_to_timeline_media":{"count":1},"profile_pic_url_hd":""}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			var buf bytes.Buffer
			_, err := newTestFetcher(t, server, &buf).Fetch(context.Background(), "a")

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FetchError", err)
			}
			if fe.Reason != ReasonDecode {
				t.Errorf("Reason = %q, want %q", fe.Reason, ReasonDecode)
			}
		})
	}
}

func TestFetcher_Fetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleProfileJSON)
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := newTestFetcher(t, server, &buf)
	f.maxBodySize = 16

	_, err := f.Fetch(context.Background(), "sarah_smith")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Reason != ReasonDecode {
		t.Fatalf("err = %v, want decode FetchError", err)
	}
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(done)

	var buf bytes.Buffer
	f := newTestFetcher(t, server, &buf)
	f.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := f.Fetch(context.Background(), "slow_user")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Reason != ReasonTransport {
		t.Errorf("Reason = %q, want %q", fe.Reason, ReasonTransport)
	}
}

func TestFetcher_Fetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	var buf bytes.Buffer
	f := NewFetcher(http.DefaultClient, newTestLogger(&buf), metrics.Nop{}, security.NewTextSanitizer(), FetcherConfig{
		Endpoint: server.URL,
	})

	_, err := f.Fetch(context.Background(), "anyone")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Reason != ReasonTransport {
		t.Fatalf("err = %v, want transport FetchError", err)
	}
	if fe.Unwrap() == nil {
		t.Error("Unwrap() = nil, want underlying error")
	}
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(http.DefaultClient, slog.Default(), metrics.Nop{}, security.NewTextSanitizer(), FetcherConfig{})
	if f.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", f.endpoint, DefaultEndpoint)
	}
	if f.maxBodySize != DefaultMaxBodySize {
		t.Errorf("maxBodySize = %d, want %d", f.maxBodySize, DefaultMaxBodySize)
	}
}

func TestFetchError_Error(t *testing.T) {
	e := &FetchError{Reason: ReasonStatus, StatusCode: 404}
	if !strings.Contains(e.Error(), "404") {
		t.Errorf("Error() = %q", e.Error())
	}
	e = &FetchError{Reason: ReasonTransport, Err: errors.New("connection reset")}
	if !strings.Contains(e.Error(), "connection reset") {
		t.Errorf("Error() = %q", e.Error())
	}
}
