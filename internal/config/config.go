package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Market    MarketConfig    `yaml:"market"`
	Universe  UniverseConfig  `yaml:"universe"`
	ChatAgent ChatAgentConfig `yaml:"chat_agent"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MarketConfig struct {
	UserAgent        string  `yaml:"user_agent"`
	TimeoutMs        int     `yaml:"timeout_ms"`
	RatePerSec       float64 `yaml:"rate_per_sec"`
	RateBurst        int     `yaml:"rate_burst"`
	StatsIntervalSec int     `yaml:"stats_interval_sec"`
	IndexIntervalSec int     `yaml:"index_interval_sec"`
}

// UniverseConfig fixes the ticker list each section refreshes. The lists
// are read once at startup and never mutated.
type UniverseConfig struct {
	Stats       []string `yaml:"stats"`
	NasdaqTop50 []string `yaml:"nasdaq_top50"`
	BSETop50    []string `yaml:"bse_top50"`
}

type ChatAgentConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	MaxHistory int    `yaml:"max_history"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Market: MarketConfig{
			UserAgent:        "financeGPT/1.0 (mailto:financegpt@gmail.com)",
			TimeoutMs:        10000,
			RatePerSec:       5,
			RateBurst:        2,
			StatsIntervalSec: 10,
			IndexIntervalSec: 30,
		},
		Universe: UniverseConfig{
			Stats:       defaultStatsTickers,
			NasdaqTop50: defaultNasdaqTop50,
			BSETop50:    defaultBSETop50,
		},
		ChatAgent: ChatAgentConfig{
			Enabled:    false,
			Model:      "gpt-4o",
			TimeoutMs:  30000,
			MaxHistory: 20,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.ChatAgent.APIKey = v
	}
	return nil
}

var defaultStatsTickers = []string{
	"AAPL", "MSFT", "GOOG", "RELIANCE.NS", "ADANIENT.NS", "TATAMOTORS.NS",
}

var defaultNasdaqTop50 = []string{
	"AAPL", "MSFT", "AMZN", "GOOG", "GOOGL", "NVDA", "TSLA", "META", "PEP", "AVGO",
	"COST", "CSCO", "ADBE", "TXN", "CMCSA", "NFLX", "AMD", "INTC", "QCOM", "HON",
	"AMGN", "ORLY", "GILD", "MDLZ", "ADP", "PYPL", "ISRG", "REGN", "ADI", "SBUX",
	"MU", "LRCX", "VRTX", "BKNG", "ACN", "KDP", "MAR", "CDNS", "MNST", "CTAS",
	"TEAM", "PANW", "XEL", "MRNA", "AEP", "FAST", "EXC", "SNPS", "DXCM", "FTNT",
}

var defaultBSETop50 = []string{
	"RELIANCE.BO", "TCS.BO", "HDFCBANK.BO", "INFY.BO", "MRF.NS", "ICICIBANK.BO",
	"HINDUNILVR.BO", "ITC.BO", "KOTAKBANK.BO", "BAJFINANCE.BO", "SBIN.BO",
	"BHARTIARTL.BO", "ASIANPAINT.BO", "MARUTI.BO", "DMART.BO", "WIPRO.BO",
	"ADANIGREEN.BO", "LT.BO", "SUNPHARMA.BO", "TECHM.BO", "ULTRACEMCO.BO",
	"NTPC.BO", "POWERGRID.BO", "TITAN.BO", "ONGC.BO", "M&M.BO", "JSWSTEEL.BO",
	"BAJAJFINSV.BO", "HCLTECH.BO", "GRASIM.BO", "COALINDIA.BO", "HEROMOTOCO.BO",
	"SBILIFE.BO", "ADANIPORTS.BO", "EICHERMOT.BO", "DRREDDY.BO", "BPCL.BO",
	"HDFCLIFE.BO", "DABUR.BO", "BRITANNIA.BO", "DIVISLAB.BO", "VEDL.BO",
	"ICICIPRULI.BO", "GODREJCP.BO", "SHREECEM.BO", "PIDILITIND.BO",
	"TATAMOTORS.BO", "INDUSINDBK.BO", "APOLLOHOSP.BO", "CIPLA.BO",
}
