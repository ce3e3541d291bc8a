// Command advisor runs the hourly market-analysis pipeline forever: it polls
// the clock, gates execution to valid trading windows, and drives one cycle
// per hour through the Analyst → Strategist → Risk-Reviewer chain.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/minjae-dev/krx-advisor/internal/config"
	"github.com/minjae-dev/krx-advisor/internal/gen"
	"github.com/minjae-dev/krx-advisor/internal/ledger"
	"github.com/minjae-dev/krx-advisor/internal/market"
	"github.com/minjae-dev/krx-advisor/internal/notify"
	"github.com/minjae-dev/krx-advisor/internal/observ"
	"github.com/minjae-dev/krx-advisor/internal/pipeline"
	"github.com/minjae-dev/krx-advisor/internal/report"
	"github.com/minjae-dev/krx-advisor/internal/scheduler"
	"github.com/minjae-dev/krx-advisor/internal/session"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	once := flag.Bool("once", false, "run a single cycle immediately and exit (ignores the session gate)")
	flag.Parse()

	// Credentials may live in a local .env; absence of the file is fine.
	_ = godotenv.Load()

	creds, err := config.LoadCredentials()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Defaults()
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := observ.NewLogger(cfg.LogLevel, cfg.Paths.LogsDir)

	gate, err := session.NewGate(cfg.Session, cfg.Calendar)
	if err != nil {
		log.Fatal().Err(err).Msg("session gate configuration invalid")
	}

	metricsSrv := observ.ServeMetrics(cfg.MetricsAddr)
	if metricsSrv != nil {
		defer metricsSrv.Close()
	}

	auth := market.NewAuth(market.AuthConfig{
		AppKey:    creds.KISAppKey,
		AppSecret: creds.KISAppSecret,
		Mode:      creds.KISMode,
		Location:  gate.Location(),
		Timeout:   time.Duration(cfg.Market.TimeoutMs) * time.Millisecond,
	})
	collector := market.NewCollector(auth, cfg.Market, gate.Location(), log)

	runner := gen.NewRunner(
		gen.NewGeminiClient(gen.GeminiConfig{
			APIKey:  creds.GeminiAPIKey,
			Model:   cfg.Gen.Model,
			Timeout: time.Duration(cfg.Gen.TimeoutMs) * time.Millisecond,
		}),
		gen.Policy{
			MaxAttempts: cfg.Gen.MaxAttempts,
			Base:        time.Duration(cfg.Gen.BackoffBaseMs) * time.Millisecond,
			Cap:         time.Duration(cfg.Gen.BackoffMaxMs) * time.Millisecond,
		},
		log,
	)

	notifier := notify.NewTelegram(notify.TelegramConfig{
		Token:   creds.TelegramToken,
		ChatID:  creds.TelegramChatID,
		Timeout: time.Duration(cfg.Telegram.TimeoutMs) * time.Millisecond,
	}, log)

	pipe := pipeline.New(
		collector,
		runner,
		notifier,
		ledger.NewStore(cfg.Paths.OrdersFile, log),
		report.NewWriter(cfg.Paths.ReportsDir, log),
		report.NewStatus(cfg.Paths.StateFile, log),
		func(name string) (string, error) { return gen.LoadPrompt(cfg.Paths.SkillsDir, name) },
		gate.Location(),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("model", cfg.Gen.Model).
		Str("mode", creds.KISMode).
		Str("session", cfg.Session.Open+"-"+cfg.Session.Close+" "+cfg.Session.Timezone).
		Msg("krx-advisor starting")

	if *once {
		now := time.Now().In(gate.Location())
		if st := gate.Evaluate(now); !st.Open {
			log.Warn().Str("reason", st.Reason).Msg("session is closed, running anyway (-once)")
		}
		if err := pipe.Run(ctx, now); err != nil {
			os.Exit(1)
		}
		return
	}

	scheduler.New(gate, pipe, gate.Location(), log).Run(ctx)
}
