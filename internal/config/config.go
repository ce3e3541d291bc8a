// Package config exposes strongly typed application configuration loaded from
// YAML, plus the environment-sourced credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Paths locates the file artifacts the pipeline reads and writes.
type Paths struct {
	OrdersFile string `yaml:"orders_file"`
	ReportsDir string `yaml:"reports_dir"`
	LogsDir    string `yaml:"logs_dir"`
	StateFile  string `yaml:"state_file"`
	SkillsDir  string `yaml:"skills_dir"`
}

// Session is the daily trading window in the exchange timezone.
type Session struct {
	Timezone string   `yaml:"timezone"`
	Open     string   `yaml:"open"`  // "09:00"
	Close    string   `yaml:"close"` // "15:30"
	Weekend  []string `yaml:"weekend"`
}

// Calendar supplies non-trading dates per year. Years absent from Holidays
// fall back to the exchange calendar identified by MIC when enabled.
type Calendar struct {
	MIC                 string           `yaml:"mic"`
	UseExchangeCalendar bool             `yaml:"use_exchange_calendar"`
	Holidays            map[int][]string `yaml:"holidays"` // year -> ["2026-01-01", ...]
}

// Index names one tracked market index and its brokerage code.
type Index struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Market configures the brokerage data aggregator.
type Market struct {
	Indices        []Index `yaml:"indices"`
	InvestorIndex  string  `yaml:"investor_index"`
	RequestPauseMs int     `yaml:"request_pause_ms"`
	TimeoutMs      int     `yaml:"timeout_ms"`
	FXFallbackURL  string  `yaml:"fx_fallback_url"`
}

// Gen configures the text-generation backend and the stage retry policy.
type Gen struct {
	Model         string `yaml:"model"`
	MaxAttempts   int    `yaml:"max_attempts"`
	BackoffBaseMs int    `yaml:"backoff_base_ms"`
	BackoffMaxMs  int    `yaml:"backoff_max_ms"`
	TimeoutMs     int    `yaml:"timeout_ms"`
}

// Telegram configures the notifier transport.
type Telegram struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

type Root struct {
	LogLevel    string   `yaml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Paths       Paths    `yaml:"paths"`
	Session     Session  `yaml:"session"`
	Calendar    Calendar `yaml:"calendar"`
	Market      Market   `yaml:"market"`
	Gen         Gen      `yaml:"gen"`
	Telegram    Telegram `yaml:"telegram"`
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	return c, nil
}

// Defaults is the configuration used when no file is supplied.
func Defaults() Root {
	var c Root
	applyDefaults(&c)
	return c
}

func applyDefaults(c *Root) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Paths.OrdersFile == "" {
		c.Paths.OrdersFile = "last_hour_orders.json"
	}
	if c.Paths.ReportsDir == "" {
		c.Paths.ReportsDir = "reports"
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = "logs"
	}
	if c.Paths.StateFile == "" {
		c.Paths.StateFile = "context/global_state.md"
	}
	if c.Paths.SkillsDir == "" {
		c.Paths.SkillsDir = ".agent/skills"
	}

	if c.Session.Timezone == "" {
		c.Session.Timezone = "Asia/Seoul"
	}
	if c.Session.Open == "" {
		c.Session.Open = "09:00"
	}
	if c.Session.Close == "" {
		c.Session.Close = "15:30"
	}
	if len(c.Session.Weekend) == 0 {
		c.Session.Weekend = []string{"Saturday", "Sunday"}
	}

	if c.Calendar.MIC == "" {
		c.Calendar.MIC = "xkrx"
	}

	if len(c.Market.Indices) == 0 {
		c.Market.Indices = []Index{{Name: "KOSPI", Code: "0001"}, {Name: "KOSDAQ", Code: "1001"}}
	}
	if c.Market.InvestorIndex == "" {
		c.Market.InvestorIndex = "0001"
	}
	if c.Market.RequestPauseMs == 0 {
		c.Market.RequestPauseMs = 200
	}
	if c.Market.TimeoutMs == 0 {
		c.Market.TimeoutMs = 10000
	}
	if c.Market.FXFallbackURL == "" {
		c.Market.FXFallbackURL = "https://open.er-api.com/v6/latest/USD"
	}

	if c.Gen.Model == "" {
		c.Gen.Model = "gemini-2.5-flash"
	}
	if c.Gen.MaxAttempts == 0 {
		c.Gen.MaxAttempts = 3
	}
	if c.Gen.BackoffBaseMs == 0 {
		c.Gen.BackoffBaseMs = 2000
	}
	if c.Gen.BackoffMaxMs == 0 {
		c.Gen.BackoffMaxMs = 8000
	}
	if c.Gen.TimeoutMs == 0 {
		c.Gen.TimeoutMs = 120000
	}

	if c.Telegram.TimeoutMs == 0 {
		c.Telegram.TimeoutMs = 10000
	}
}
