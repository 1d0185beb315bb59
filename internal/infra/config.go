package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"altbot/internal/domain"
	"altbot/pkg/quant"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig는 기본값 위에 파일을 덮고, 그 위에 환경 변수를 덮습니다.
type Config struct {
	App struct {
		Name    string `yaml:"name" validate:"required"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Logging struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	HotPath struct {
		TargetP95Ms        float64         `yaml:"target_p95_ms" validate:"gt=0"`
		ReturnThresholdPct decimal.Decimal `yaml:"return_threshold_pct"`
		WindowSecs         int             `yaml:"window_secs" validate:"gte=1,lte=3600"`
		MaxSymbols         int             `yaml:"max_symbols" validate:"gte=1,lte=100000"`
		MaxTicksPerSec     int             `yaml:"max_ticks_per_sec" validate:"gte=1"`
		SnapshotPool       int             `yaml:"snapshot_pool" validate:"gte=2,lte=16"`
		PublishIntervalMs  int             `yaml:"publish_interval_ms" validate:"gte=0"`
	} `yaml:"hotpath"`

	Risk struct {
		InitialBudget    int64 `yaml:"initial_budget" validate:"gte=0"`
		MaxOpenIntents   int64 `yaml:"max_open_intents" validate:"gte=0"`
		CooldownMs       int64 `yaml:"cooldown_ms" validate:"gte=0"`
		BuyEnabled       bool  `yaml:"buy_enabled"`
		ReplenishPerPass int64 `yaml:"replenish_per_pass" validate:"gte=0"`
	} `yaml:"risk"`

	Dispatch struct {
		QueueCapacity int `yaml:"queue_capacity" validate:"gte=1"`
	} `yaml:"dispatch"`

	Execution struct {
		AckDelayUs  int `yaml:"ack_delay_us" validate:"gte=0"`
		FillDelayUs int `yaml:"fill_delay_us" validate:"gte=0"`
		EventBuffer int `yaml:"event_buffer" validate:"gte=0"`
	} `yaml:"execution"`

	Maintenance struct {
		IntervalMs int `yaml:"interval_ms" validate:"gte=10"`
	} `yaml:"maintenance"`

	Engine struct {
		DecodeErrorPolicy string `yaml:"decode_error_policy" validate:"oneof=skip halt"`
		DumpPath          string `yaml:"dump_path"`
	} `yaml:"engine"`

	Report struct {
		Dir string `yaml:"dir" validate:"required"`
	} `yaml:"report"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Admin struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
	} `yaml:"admin"`

	Feed struct {
		WSURL      string `yaml:"ws_url" validate:"omitempty,url"`
		Buffer     int    `yaml:"buffer" validate:"gte=1"`
		RatePerSec int    `yaml:"rate_per_sec" validate:"gte=0"`
	} `yaml:"feed"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "altbot"
	cfg.App.Version = "0.1.0"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"

	cfg.HotPath.TargetP95Ms = 15
	cfg.HotPath.ReturnThresholdPct = decimal.NewFromInt(5)
	cfg.HotPath.WindowSecs = 60
	cfg.HotPath.MaxSymbols = 300
	cfg.HotPath.MaxTicksPerSec = 100
	cfg.HotPath.SnapshotPool = 2
	cfg.HotPath.PublishIntervalMs = 250

	cfg.Risk.InitialBudget = 1000
	cfg.Risk.MaxOpenIntents = 10
	cfg.Risk.CooldownMs = 500
	cfg.Risk.BuyEnabled = true

	cfg.Dispatch.QueueCapacity = 1000

	cfg.Execution.AckDelayUs = 50
	cfg.Execution.FillDelayUs = 100
	cfg.Execution.EventBuffer = 4096

	cfg.Maintenance.IntervalMs = 1000

	cfg.Engine.DecodeErrorPolicy = "skip"
	cfg.Engine.DumpPath = "panic_dump.json"

	cfg.Report.Dir = "reports"
	cfg.Storage.Path = "data/runs.db"
	cfg.Admin.Addr = "127.0.0.1:8089"
	cfg.Feed.Buffer = 8192
	return cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig applies defaults, then the YAML document, then the environment.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &domain.ConfigError{Field: verrs[0].Namespace(), Err: verrs[0]}
		}
		return &domain.ConfigError{Field: "config", Err: err}
	}

	if !c.HotPath.ReturnThresholdPct.IsPositive() {
		return &domain.ConfigError{
			Field: "hotpath.return_threshold_pct",
			Err:   fmt.Errorf("must be positive, got %s", c.HotPath.ReturnThresholdPct),
		}
	}
	if c.HotPath.MaxTicksPerSec*c.HotPath.WindowSecs < 2 {
		return &domain.ConfigError{
			Field: "hotpath.max_ticks_per_sec",
			Err:   errors.New("window capacity must hold at least two samples"),
		}
	}
	return nil
}

// Threshold returns the trigger threshold in fixed point.
func (c *Config) Threshold() quant.ReturnE8 {
	return quant.PercentToReturn(c.HotPath.ReturnThresholdPct)
}

// Window returns the trailing horizon.
func (c *Config) Window() time.Duration {
	return time.Duration(c.HotPath.WindowSecs) * time.Second
}

// WindowCapacity is the per-symbol sample capacity: worst-case tick rate × horizon.
func (c *Config) WindowCapacity() int {
	return c.HotPath.MaxTicksPerSec * c.HotPath.WindowSecs
}

// TargetP95 returns the informational p95 latency target.
func (c *Config) TargetP95() time.Duration {
	return time.Duration(c.HotPath.TargetP95Ms * float64(time.Millisecond))
}

// Cooldown returns the per-symbol cooldown.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Risk.CooldownMs) * time.Millisecond
}

// PublishInterval returns how often the hot thread republishes a symbol's snapshot.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.HotPath.PublishIntervalMs) * time.Millisecond
}

// AckDelay returns the simulated venue ack delay.
func (c *Config) AckDelay() time.Duration {
	return time.Duration(c.Execution.AckDelayUs) * time.Microsecond
}

// FillDelay returns the simulated venue fill delay after ack.
func (c *Config) FillDelay() time.Duration {
	return time.Duration(c.Execution.FillDelayUs) * time.Microsecond
}

// MaintenanceInterval returns the period between maintenance passes.
func (c *Config) MaintenanceInterval() time.Duration {
	return time.Duration(c.Maintenance.IntervalMs) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("ALTBOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ALTBOT_FEED_WS_URL"); v != "" {
		cfg.Feed.WSURL = v
	}
	if v := os.Getenv("ALTBOT_ADMIN_ADDR"); v != "" {
		cfg.Admin.Addr = v
	}
	if v := os.Getenv("ALTBOT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("ALTBOT_BUY_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &domain.ConfigError{Field: "ALTBOT_BUY_ENABLED", Err: err}
		}
		cfg.Risk.BuyEnabled = b
	}
	if v := os.Getenv("ALTBOT_RETURN_THRESHOLD_PCT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return &domain.ConfigError{Field: "ALTBOT_RETURN_THRESHOLD_PCT", Err: err}
		}
		cfg.HotPath.ReturnThresholdPct = d
	}
	if v := os.Getenv("ALTBOT_INITIAL_BUDGET"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &domain.ConfigError{Field: "ALTBOT_INITIAL_BUDGET", Err: err}
		}
		cfg.Risk.InitialBudget = n
	}
	return nil
}
