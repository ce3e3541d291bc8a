// Command verify checks backend connectivity and prints fetched samples:
// brokerage auth, index snapshot, investor flow and FX by default, plus the
// notifier and generation backend behind flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/minjae-dev/krx-advisor/internal/config"
	"github.com/minjae-dev/krx-advisor/internal/gen"
	"github.com/minjae-dev/krx-advisor/internal/market"
	"github.com/minjae-dev/krx-advisor/internal/notify"
	"github.com/minjae-dev/krx-advisor/internal/observ"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	checkTelegram := flag.Bool("telegram", false, "also send a test notification")
	checkGen := flag.Bool("gen", false, "also round-trip the generation backend")
	flag.Parse()

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

	log := observ.NewLogger("warn", "")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("== Brokerage connectivity ==")
	auth := market.NewAuth(market.AuthConfig{
		AppKey:    creds.KISAppKey,
		AppSecret: creds.KISAppSecret,
		Mode:      creds.KISMode,
		Timeout:   time.Duration(cfg.Market.TimeoutMs) * time.Millisecond,
	})
	fmt.Printf("mode: %s (%s)\n", creds.KISMode, auth.BaseURL())
	if _, err := auth.Refresh(ctx); err != nil {
		fmt.Println("auth: FAILED:", err)
		os.Exit(1)
	}
	fmt.Printf("auth: ok, token expires %s\n", auth.Expiry().Format("2006-01-02 15:04:05"))

	collector := market.NewCollector(auth, cfg.Market, time.Local, log)
	for _, idx := range cfg.Market.Indices {
		quote, err := collector.FetchIndex(ctx, idx.Code)
		if err != nil {
			fmt.Printf("%s: FAILED: %v\n", idx.Name, err)
			continue
		}
		fmt.Printf("%s: price=%s change=%s%%\n", idx.Name, quote.Price, quote.Change)
	}

	if flow, err := collector.FetchInvestorFlow(ctx, cfg.Market.InvestorIndex); err != nil {
		fmt.Println("investor flow: FAILED:", err)
	} else {
		fmt.Printf("investor flow: ok (%d bytes)\n", len(flow))
	}

	if fx, err := collector.FetchExchangeRate(ctx); err != nil {
		fmt.Println("USD/KRW: FAILED:", err)
	} else {
		fmt.Printf("USD/KRW: %.2f\n", fx)
	}

	if *checkTelegram {
		fmt.Println("== Notifier ==")
		notifier := notify.NewTelegram(notify.TelegramConfig{
			Token:   creds.TelegramToken,
			ChatID:  creds.TelegramChatID,
			Timeout: time.Duration(cfg.Telegram.TimeoutMs) * time.Millisecond,
		}, log)
		if err := notifier.Send(ctx, "krx-advisor connectivity check"); err != nil {
			fmt.Println("telegram: FAILED:", err)
		} else {
			fmt.Println("telegram: ok")
		}
	}

	if *checkGen {
		fmt.Println("== Generation backend ==")
		client := gen.NewGeminiClient(gen.GeminiConfig{
			APIKey:  creds.GeminiAPIKey,
			Model:   cfg.Gen.Model,
			Timeout: time.Duration(cfg.Gen.TimeoutMs) * time.Millisecond,
		})
		out, err := client.Generate(ctx, "", "Reply with the single word: ok", false)
		if err != nil {
			fmt.Println("generation: FAILED:", err)
		} else {
			fmt.Printf("generation: %q\n", out)
		}
	}
}
