package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"QuantDesk/internal/strategy"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Discord    DiscordConfig    `yaml:"discord"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Universe   []string         `yaml:"universe" validate:"dive,required"`
	Market     strategy.Catalog `yaml:"market"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Filters    FiltersConfig    `yaml:"filters"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Proxy      string           `yaml:"proxy" validate:"omitempty,url"`
}

// DiscordConfig maps channel names to incoming webhook URLs.
type DiscordConfig struct {
	Username string            `yaml:"username" default:"QuantDesk Signals"`
	Webhooks map[string]string `yaml:"webhooks" validate:"dive,keys,required,endkeys,url"`
}

type TelegramConfig struct {
	BotToken  string            `yaml:"bot_token"`
	ChatID    string            `yaml:"chat_id" validate:"required_with=BotToken"`
	Chats     map[string]string `yaml:"chats"`
	NoPolling bool              `yaml:"disable_polling"`
}

type DataSourceConfig struct {
	Provider     string        `yaml:"provider" default:"yahoo" validate:"oneof=yahoo mock"`
	BaseURL      string        `yaml:"base_url" validate:"omitempty,url"`
	LookbackDays int           `yaml:"lookback_days" default:"400" validate:"min=260"`
	RateLimit    float64       `yaml:"rate_limit" default:"5" validate:"gt=0"`
	Workers      int           `yaml:"workers" default:"4" validate:"min=1,max=32"`
	CacheTTL     time.Duration `yaml:"cache_ttl" default:"6h"`
}

// StrategyConfig describes one published strategy.
type StrategyConfig struct {
	Label   string `yaml:"label" validate:"required"`
	Channel string `yaml:"channel" validate:"required"`
	TopN    int    `yaml:"top_n" validate:"min=1,max=500"`
}

type StrategiesConfig struct {
	Benchmark     string         `yaml:"benchmark" default:"SPY" validate:"required"`
	SMAWindow     int            `yaml:"sma_window" default:"200" validate:"min=2"`
	QuarterMonths []int          `yaml:"quarter_months" default:"[1,4,7,10]" validate:"min=1,dive,min=1,max=12"`
	Defensive     StrategyConfig `yaml:"defensive"`
	Offensive     StrategyConfig `yaml:"offensive"`
	Analysis      string         `yaml:"analysis_channel" default:"🌍-daily-market-analysis" validate:"required"`
}

type FiltersConfig struct {
	MinPrice        float64 `yaml:"min_price" default:"5" validate:"gte=0"`
	MinDollarVolume float64 `yaml:"min_dollar_volume" default:"20000000" validate:"gte=0"`
	ADVWindow       int     `yaml:"adv_window" default:"60" validate:"min=1"`
}

type ScheduleConfig struct {
	TickCron         string `yaml:"tick_cron" default:"0 30 14 * * *" validate:"required"`
	AnalysisCron     string `yaml:"analysis_cron" default:"0 0 15 * * 1-5"`
	Timezone         string `yaml:"timezone" default:"UTC" validate:"required"`
	MonthlyGrace     int    `yaml:"monthly_grace_days" default:"3" validate:"min=1,max=28"`
	RunOnStart       bool   `yaml:"run_on_start"`
	AnalysisLookback int    `yaml:"analysis_lookback_days" default:"14" validate:"min=7"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" default:"data/quantdesk.db"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"quantdesk"`
}

type ServerConfig struct {
	Disabled bool   `yaml:"disabled"`
	Addr     string `yaml:"addr" default:":8080" validate:"required"`
}

type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50"`
	MaxBackups int    `yaml:"max_backups" default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" default:"30"`
}

var validate = validator.New()

// ErrNoSink is returned by Validate when neither Discord nor Telegram is
// configured. Read-only commands and dry runs may ignore it.
var ErrNoSink = errors.New("no publication sink configured: set discord.webhooks or telegram.bot_token")

// Load reads config from a YAML file and the .env file next to the process,
// applies environment variable overrides, then fills defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CRON_TICK"); v != "" {
		cfg.Schedule.TickCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		cfg.Schedule.RunOnStart, _ = strconv.ParseBool(v)
	}
	// DISCORD_WEBHOOK_<NAME>=url, where NAME is tmem, mec or analysis.
	routes := map[string]*StrategyConfig{"TMEM": &cfg.Strategies.Defensive, "MEC": &cfg.Strategies.Offensive}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || v == "" || !strings.HasPrefix(k, "DISCORD_WEBHOOK_") {
			continue
		}
		name := strings.TrimPrefix(k, "DISCORD_WEBHOOK_")
		var channel string
		switch {
		case name == "ANALYSIS":
			channel = cfg.Strategies.Analysis
			if channel == "" {
				channel = defaultAnalysisChannel
			}
		case routes[name] != nil:
			channel = routes[name].Channel
			if channel == "" {
				channel = defaultChannels[name]
			}
		default:
			continue
		}
		if cfg.Discord.Webhooks == nil {
			cfg.Discord.Webhooks = make(map[string]string)
		}
		cfg.Discord.Webhooks[channel] = v
	}
}

const defaultAnalysisChannel = "🌍-daily-market-analysis"

var defaultChannels = map[string]string{
	"TMEM": "📊-tmem-signals",
	"MEC":  "📊-mec-signals",
}

// SetDefaults fills zero values from struct tags and the built-in universe
// and market catalog.
func (c *Config) SetDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	fill := func(s *StrategyConfig, label string, topN int) {
		if s.Label == "" {
			s.Label = label
		}
		if s.Channel == "" {
			s.Channel = defaultChannels[label]
		}
		if s.TopN == 0 {
			s.TopN = topN
		}
	}
	fill(&c.Strategies.Defensive, "TMEM", 30)
	fill(&c.Strategies.Offensive, "MEC", 40)

	if len(c.Universe) == 0 {
		c.Universe = append([]string(nil), DefaultUniverse...)
	}
	if len(c.Market.Indices) == 0 && len(c.Market.Sectors) == 0 {
		c.Market = DefaultCatalog()
	}
	return nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Strategies.Defensive.Channel == c.Strategies.Offensive.Channel {
		return fmt.Errorf("strategies: defensive and offensive channels must differ")
	}
	if len(c.Discord.Webhooks) == 0 && c.Telegram.BotToken == "" {
		return ErrNoSink
	}
	return nil
}

// Location returns the scheduler's time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RankFilters converts the filter section to ranking thresholds.
func (c *Config) RankFilters() strategy.Filters {
	return strategy.Filters{
		MinPrice:        c.Filters.MinPrice,
		MinDollarVolume: c.Filters.MinDollarVolume,
		ADVWindow:       c.Filters.ADVWindow,
	}
}
