// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/profilescope/internal/config"
	"github.com/hitoshi/profilescope/internal/database"
	"github.com/hitoshi/profilescope/internal/handler"
	"github.com/hitoshi/profilescope/internal/linkage"
	"github.com/hitoshi/profilescope/internal/logger"
	"github.com/hitoshi/profilescope/internal/metrics"
	"github.com/hitoshi/profilescope/internal/middleware"
	"github.com/hitoshi/profilescope/internal/model"
	"github.com/hitoshi/profilescope/internal/profile"
	"github.com/hitoshi/profilescope/internal/repository"
	"github.com/hitoshi/profilescope/internal/security"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// errUsage はサブコマンドの引数不足を表す。
var errUsage = errors.New("usage: profilescope [serve|migrate|seed|detect <username>|healthcheck]")

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 設定読み込みの失敗もJSONで出力できるよう、先にinfoレベルで初期化する
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel)), nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。ログとdetectの結果はwに出力する。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	if cmd == CommandDetect && (len(args) < 2 || strings.TrimSpace(args[1]) == "") {
		return errUsage
	}

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, log)
	case CommandSeed:
		return runSeed(ctx, cfg, log)
	case CommandDetect:
		return runDetect(ctx, cfg, log, w, strings.TrimSpace(args[1]))
	default:
		return runServe(ctx, cfg, log)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// newSimulatorRand はシミュレーター用の乱数源を生成する。seedが0なら毎回異なる系列になる。
func newSimulatorRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// newAnalyzer はFetcherとSimulatorを組み合わせたAnalyzerを構築する。
// HTTPクライアントは起動時に1回だけ生成し、全リクエストで共有する。
func newAnalyzer(cfg *config.Config, log *slog.Logger, collector metrics.MetricsCollector) *profile.Analyzer {
	guard := security.NewEndpointGuard()
	fetcher := profile.NewFetcher(
		guard.NewSafeClient(cfg.ProfileFetchTimeout),
		log,
		collector,
		security.NewTextSanitizer(),
		profile.FetcherConfig{
			Endpoint:    cfg.ProfileAPIEndpoint,
			MaxBodySize: cfg.ProfileFetchMaxSize,
		},
	)
	simulator := profile.NewSimulator(newSimulatorRand(cfg.SimulatorSeed), time.Now)

	return profile.NewAnalyzer(fetcher, simulator, log, collector)
}

// newMetricsRegistry はアプリケーションとランタイムのメトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はHTTPサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, collector := newMetricsRegistry()

	analyzer := newAnalyzer(cfg, log, collector)
	detector := linkage.NewDetector(repository.NewPostgresAccountRepo(db), log, collector)

	rateLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitAnalyze), log)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Analyzer:          analyzer,
		Detector:          detector,
		HealthChecker:     db,
		MetricsHandler:    metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// 外部API呼び出しのタイムアウトより長くする
		WriteTimeout: cfg.ProfileFetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serve(ctx, server, log)
}

// serve はserverを起動し、ctxのキャンセルでシャットダウンする。
func serve(ctx context.Context, server *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("HTTP server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runSeed はスキーマを最新化した上でサンプルアカウントを投入する。
func runSeed(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if err := runMigrate(cfg, log); err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Seed(ctx, db, log); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// detectOutput はdetectサブコマンドの出力形式。
type detectOutput struct {
	*linkage.LinkReport
	IsSuspicious   bool   `json:"is_suspicious"`
	SuspicionScore int    `json:"suspicion_score"`
	Error          string `json:"error,omitempty"`
}

// runDetect は指定ユーザー名のリンク検出結果をJSONでoutに書き出す。
// アカウントが存在しない場合も{"error": ...}を出力してエラーを返す。
func runDetect(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer, username string) error {
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	detector := linkage.NewDetector(repository.NewPostgresAccountRepo(db), log, metrics.Nop{})
	return writeDetectResult(ctx, detector, out, username)
}

// linkSearcher はdetectサブコマンドが使うリンク検出の抽象。
type linkSearcher interface {
	SearchUser(ctx context.Context, username string) (*linkage.LinkReport, error)
}

func writeDetectResult(ctx context.Context, detector linkSearcher, out io.Writer, username string) error {
	report, searchErr := detector.SearchUser(ctx, username)

	result := detectOutput{
		LinkReport:     report,
		IsSuspicious:   linkage.IsSuspicious(report),
		SuspicionScore: linkage.SuspicionScore(report),
	}
	if searchErr != nil {
		result = detectOutput{Error: searchErr.Error()}
		var apiErr *model.APIError
		if errors.As(searchErr, &apiErr) {
			result.Error = apiErr.Message
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write detect result: %w", err)
	}

	if searchErr != nil {
		return fmt.Errorf("detect failed: %w", searchErr)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
