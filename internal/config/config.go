package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv   = "HEALTHBRIEF_CONFIG"
	openAIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	emailFromEnv    = "EMAIL_FROM"
	emailPassEnv    = "EMAIL_PASSWORD"
	emailToEnv      = "EMAIL_TO"
	smtpServerEnv   = "EMAIL_SMTP_SERVER"
	smtpPortEnv     = "EMAIL_SMTP_PORT"
	maxConfigSizeKB = 64
)

// Config holds all settings for one process. It is read once at startup
// and treated as immutable for the duration of every run.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Newsletter NewsletterConfig `yaml:"newsletter"`
	Keywords   KeywordConfig    `yaml:"keywords"`
	RateLimits RateLimitConfig  `yaml:"rateLimits"`
	Email      EmailConfig      `yaml:"email"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Sites      []SiteConfig     `yaml:"sites"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ArchiveConfig locates the sqlite archive and the newsletters directory.
type ArchiveConfig struct {
	DatabasePath  string `yaml:"databasePath"`
	NewsletterDir string `yaml:"newsletterDir"`
}

// SchedulingConfig defines the weekly generation slot.
type SchedulingConfig struct {
	DayOfWeek string         `yaml:"dayOfWeek"`
	Time      string         `yaml:"time"`
	Timezone  string         `yaml:"timezone"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the configured timezone, defaulting to UTC.
func (s SchedulingConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Weekday parses the configured day of week, defaulting to Monday.
func (s SchedulingConfig) Weekday() time.Weekday {
	switch strings.ToLower(strings.TrimSpace(s.DayOfWeek)) {
	case "sunday":
		return time.Sunday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		return time.Monday
	}
}

// ClockTime parses the configured HH:MM time of day.
func (s SchedulingConfig) ClockTime() (hour, minute int) {
	parts := strings.SplitN(strings.TrimSpace(s.Time), ":", 2)
	if len(parts) != 2 {
		return 9, 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 9, 0
	}
	return h, m
}

// NewsletterConfig carries masthead and sizing settings.
type NewsletterConfig struct {
	Name         string `yaml:"name"`
	Organization string `yaml:"organization"`
	SectionCap   int    `yaml:"sectionCap"`
}

// KeywordConfig holds the two relevance keyword families as lowercase
// phrases.
type KeywordConfig struct {
	Payer      []string `yaml:"payer"`
	Innovation []string `yaml:"innovation"`
}

// RateLimitConfig bounds outbound call volume per fixed one-hour window.
type RateLimitConfig struct {
	ScrapePerHour int `yaml:"scrapePerHour"`
	EmailPerHour  int `yaml:"emailPerHour"`
}

// EmailConfig wires SMTP delivery. Password and recipients never come from
// the config file; they are supplied through the environment only.
type EmailConfig struct {
	SMTPHost      string   `yaml:"smtpHost"`
	SMTPPort      int      `yaml:"smtpPort"`
	From          string   `yaml:"from"`
	Password      string   `yaml:"-"`
	To            []string `yaml:"-"`
	MaxRecipients int      `yaml:"maxRecipients"`
}

// Configured reports whether delivery is sufficiently set up to send.
func (e EmailConfig) Configured() bool {
	return e.From != "" && len(e.To) > 0
}

// OpenAIConfig defines how to contact the summarization API.
type OpenAIConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"-"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

// SiteConfig describes a single content source and its scraper strategy.
type SiteConfig struct {
	Name    string `yaml:"name"`
	Scraper string `yaml:"scraper"`
	URL     string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. Site order in the file is the fetch registration order, which
// fixes the deterministic article ordering for the whole run.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.Size() > maxConfigSizeKB*1024 {
			log.Printf("config: %s exceeds %dKB limit (falling back to defaults)", path, maxConfigSizeKB)
		} else if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(emailFromEnv); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv(emailPassEnv); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv(emailToEnv); v != "" {
		var recipients []string
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				recipients = append(recipients, addr)
			}
		}
		c.Email.To = recipients
	}
	if v := os.Getenv(smtpServerEnv); v != "" {
		c.Email.SMTPHost = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Email.SMTPPort = port
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduling.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduling.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Archive.DatabasePath != "" {
		base.Archive.DatabasePath = override.Archive.DatabasePath
	}
	if override.Archive.NewsletterDir != "" {
		base.Archive.NewsletterDir = override.Archive.NewsletterDir
	}

	if override.Scheduling.DayOfWeek != "" {
		base.Scheduling.DayOfWeek = override.Scheduling.DayOfWeek
	}
	if override.Scheduling.Time != "" {
		base.Scheduling.Time = override.Scheduling.Time
	}
	if override.Scheduling.Timezone != "" {
		base.Scheduling.Timezone = override.Scheduling.Timezone
	}

	if override.Newsletter.Name != "" {
		base.Newsletter.Name = override.Newsletter.Name
	}
	if override.Newsletter.Organization != "" {
		base.Newsletter.Organization = override.Newsletter.Organization
	}
	if override.Newsletter.SectionCap > 0 {
		base.Newsletter.SectionCap = override.Newsletter.SectionCap
	}

	if len(override.Keywords.Payer) > 0 {
		base.Keywords.Payer = override.Keywords.Payer
	}
	if len(override.Keywords.Innovation) > 0 {
		base.Keywords.Innovation = override.Keywords.Innovation
	}

	if override.RateLimits.ScrapePerHour > 0 {
		base.RateLimits.ScrapePerHour = override.RateLimits.ScrapePerHour
	}
	if override.RateLimits.EmailPerHour > 0 {
		base.RateLimits.EmailPerHour = override.RateLimits.EmailPerHour
	}

	// Credentials and recipients are deliberately not file-sourced.
	if override.Email.SMTPHost != "" {
		base.Email.SMTPHost = override.Email.SMTPHost
	}
	if override.Email.SMTPPort > 0 {
		base.Email.SMTPPort = override.Email.SMTPPort
	}
	if override.Email.From != "" {
		base.Email.From = override.Email.From
	}
	if override.Email.MaxRecipients > 0 {
		base.Email.MaxRecipients = override.Email.MaxRecipients
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.MaxTokens > 0 {
		base.OpenAI.MaxTokens = override.OpenAI.MaxTokens
	}
	if override.OpenAI.Temperature > 0 {
		base.OpenAI.Temperature = override.OpenAI.Temperature
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Archive: ArchiveConfig{
			DatabasePath:  filepath.Join(xdg.DataHome, "healthbrief", "archive.db"),
			NewsletterDir: "newsletters",
		},
		Scheduling: SchedulingConfig{
			DayOfWeek: "monday",
			Time:      "09:00",
			Timezone:  defaultTimezone,
			location:  tz,
		},
		Newsletter: NewsletterConfig{
			Name:       "Healthcare Weekly Newsletter",
			SectionCap: 10,
		},
		Keywords: KeywordConfig{
			Payer: []string{
				"payer", "insurance", "medicaid", "medicare", "health plan",
				"coverage", "reimbursement", "payment", "claims", "benefits",
				"premium", "deductible", "copay", "prior authorization",
			},
			Innovation: []string{
				"innovation", "technology", "digital health", "artificial intelligence",
				"machine learning", "telehealth", "telemedicine", "mobile health",
				"blockchain", "analytics", "platform", "startup",
				"venture capital", "funding", "partnership",
			},
		},
		RateLimits: RateLimitConfig{
			ScrapePerHour: 50,
			EmailPerHour:  10,
		},
		Email: EmailConfig{
			SMTPHost:      "smtp.gmail.com",
			SMTPPort:      587,
			MaxRecipients: 50,
		},
		OpenAI: OpenAIConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			MaxTokens:   1500,
			Temperature: 0.3,
		},
		Sites: []SiteConfig{
			{Name: "hospitalogy", Scraper: "hospitalogy", URL: "https://hospitalogy.com/"},
			{Name: "healthcareitnews", Scraper: "healthcareitnews", URL: "https://www.healthcareitnews.com/"},
			{Name: "fiercehealthcare", Scraper: "fiercehealthcare", URL: "https://www.fiercehealthcare.com/"},
		},
	}
}
