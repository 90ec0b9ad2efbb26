package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/username/hours-tracker/internal/datepicker"
	"github.com/username/hours-tracker/internal/hoursfield"
	"github.com/username/hours-tracker/pkg/dateutil"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Selector SelectorConfig `mapstructure:"selector"`
	Hours    HoursConfig    `mapstructure:"hours"`
	Log      LogConfig      `mapstructure:"log"`
	State    StateConfig    `mapstructure:"state"`
}

// ServerConfig represents the web host configuration
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	ReadTimeout    string   `mapstructure:"read_timeout"`
	WriteTimeout   string   `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	CSRFKey        string   `mapstructure:"csrf_key"` // 32 bytes
	SecureCookies  bool     `mapstructure:"secure_cookies"`
}

// APIConfig represents the hours backend configuration
type APIConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	CSRFCookie        string `mapstructure:"csrf_cookie"`
	CSRFBootstrapPath string `mapstructure:"csrf_bootstrap_path"`
	Timeout           string `mapstructure:"timeout"`
	Retries           int    `mapstructure:"retries"`
}

// CalendarConfig represents calendar configuration
type CalendarConfig struct {
	Type            string `mapstructure:"type"` // "file", "remote" or "composite"
	File            string `mapstructure:"file"`
	CacheTTL        string `mapstructure:"cache_ttl"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
}

// SelectorConfig holds the date selector constraints
type SelectorConfig struct {
	MinDate         string   `mapstructure:"min_date"`
	MaxDate         string   `mapstructure:"max_date"`
	DisabledDates   []string `mapstructure:"disabled_dates"`
	DisableWeekends bool     `mapstructure:"disable_weekends"`
	DisableHolidays bool     `mapstructure:"disable_holidays"`
	Locale          string   `mapstructure:"locale"`
}

// HoursConfig bounds a single hour entry
type HoursConfig struct {
	Min  string `mapstructure:"min"`
	Max  string `mapstructure:"max"`
	Step string `mapstructure:"step"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// StateConfig represents local state storage configuration
type StateConfig struct {
	DraftFile string `mapstructure:"draft_file"`
}

// Calendar types
const (
	CalendarFile      = "file"
	CalendarRemote    = "remote"
	CalendarComposite = "composite"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8080"})
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.csrf_cookie", "csrftoken")
	v.SetDefault("api.csrf_bootstrap_path", "/auth/login/")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.retries", 3)
	v.SetDefault("calendar.type", CalendarRemote)
	v.SetDefault("calendar.cache_ttl", "24h")
	v.SetDefault("calendar.refresh_schedule", "0 3 * * *")
	v.SetDefault("selector.locale", datepicker.DefaultLocale)
	v.SetDefault("hours.min", "0.5")
	v.SetDefault("hours.max", "12")
	v.SetDefault("hours.step", "0.5")
	v.SetDefault("log.level", "info")
	v.SetDefault("state.draft_file", "$HOME/.hours-tracker/draft.json")
}

// Load loads configuration from file. An empty path searches the usual
// locations; no file at all leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hours-tracker")
		v.AddConfigPath("/etc/hours-tracker")
	}

	// HOURS_API_BASE_URL overrides api.base_url
	v.SetEnvPrefix("HOURS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ExpandEnvVars()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative")
	}

	switch c.Calendar.Type {
	case CalendarFile, CalendarComposite:
		if c.Calendar.File == "" {
			return fmt.Errorf("calendar.file is required for %s type", c.Calendar.Type)
		}
	case CalendarRemote:
	default:
		return fmt.Errorf("calendar.type must be 'file', 'remote' or 'composite', got '%s'", c.Calendar.Type)
	}
	if c.Calendar.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Calendar.RefreshSchedule); err != nil {
			return fmt.Errorf("calendar.refresh_schedule is invalid: %w", err)
		}
	}

	if err := c.Selector.validate(); err != nil {
		return err
	}

	if _, err := c.Hours.Limits(); err != nil {
		return err
	}

	if key := c.Server.CSRFKey; key != "" && len(key) != 32 {
		return fmt.Errorf("server.csrf_key must be 32 bytes, got %d", len(key))
	}

	return nil
}

func (s *SelectorConfig) validate() error {
	var minDate, maxDate time.Time
	var err error

	if s.MinDate != "" {
		if minDate, err = dateutil.ParseISO(s.MinDate); err != nil {
			return fmt.Errorf("selector.min_date: %w", err)
		}
	}
	if s.MaxDate != "" {
		if maxDate, err = dateutil.ParseISO(s.MaxDate); err != nil {
			return fmt.Errorf("selector.max_date: %w", err)
		}
	}
	if s.MinDate != "" && s.MaxDate != "" && maxDate.Before(minDate) {
		return fmt.Errorf("selector.max_date %s is before min_date %s", s.MaxDate, s.MinDate)
	}
	for _, d := range s.DisabledDates {
		if !dateutil.IsValidISO(d) {
			return fmt.Errorf("selector.disabled_dates: invalid date %q", d)
		}
	}
	return nil
}

// DatePicker converts the selector section into a datepicker config.
// Holidays and handlers are supplied by the caller.
func (s *SelectorConfig) DatePicker() datepicker.Config {
	return datepicker.Config{
		MinDate:         s.MinDate,
		MaxDate:         s.MaxDate,
		DisabledDates:   append([]string(nil), s.DisabledDates...),
		DisableWeekends: s.DisableWeekends,
		DisableHolidays: s.DisableHolidays,
		Locale:          s.Locale,
	}
}

// Limits parses the hour limits
func (h *HoursConfig) Limits() (hoursfield.Limits, error) {
	limits := hoursfield.DefaultLimits()

	parse := func(name, value string, dst *decimal.Decimal) error {
		if value == "" {
			return nil
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("hours.%s is not a number: %q", name, value)
		}
		if d.IsNegative() {
			return fmt.Errorf("hours.%s must not be negative", name)
		}
		*dst = d
		return nil
	}

	if err := parse("min", h.Min, &limits.Min); err != nil {
		return limits, err
	}
	if err := parse("max", h.Max, &limits.Max); err != nil {
		return limits, err
	}
	if err := parse("step", h.Step, &limits.Step); err != nil {
		return limits, err
	}
	if limits.Max.LessThan(limits.Min) {
		return limits, fmt.Errorf("hours.max %s is below hours.min %s", limits.Max, limits.Min)
	}
	return limits, nil
}

// GetCacheTTL returns cache TTL duration
func (c *CalendarConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetTimeout returns the API request timeout
func (c *APIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetReadTimeout returns the server read timeout
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the server write timeout
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 15*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.API.BaseURL = os.ExpandEnv(c.API.BaseURL)
	c.Server.CSRFKey = os.ExpandEnv(c.Server.CSRFKey)
	c.Calendar.File = os.ExpandEnv(c.Calendar.File)
	c.Log.File = os.ExpandEnv(c.Log.File)
	c.State.DraftFile = os.ExpandEnv(c.State.DraftFile)
}
