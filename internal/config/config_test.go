package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load("")

	if cfg.RateLimits.ScrapePerHour != 50 {
		t.Errorf("ScrapePerHour = %d, want 50", cfg.RateLimits.ScrapePerHour)
	}
	if cfg.RateLimits.EmailPerHour != 10 {
		t.Errorf("EmailPerHour = %d, want 10", cfg.RateLimits.EmailPerHour)
	}
	if cfg.Newsletter.SectionCap != 10 {
		t.Errorf("SectionCap = %d, want 10", cfg.Newsletter.SectionCap)
	}
	if cfg.Scheduling.Weekday() != time.Monday {
		t.Errorf("Weekday = %v, want Monday", cfg.Scheduling.Weekday())
	}
	if len(cfg.Sites) == 0 {
		t.Error("expected default sites to be present")
	}
	if len(cfg.Keywords.Payer) == 0 || len(cfg.Keywords.Innovation) == 0 {
		t.Error("expected default keyword families to be non-empty")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
logging:
  level: debug
scheduling:
  dayOfWeek: friday
  time: "07:30"
newsletter:
  name: Regional Health Digest
  sectionCap: 5
keywords:
  payer:
    - medicare advantage
sites:
  - name: example
    scraper: rss
    url: https://example.org/feed.xml
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)

	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Scheduling.Weekday() != time.Friday {
		t.Errorf("Weekday = %v, want Friday", cfg.Scheduling.Weekday())
	}
	h, m := cfg.Scheduling.ClockTime()
	if h != 7 || m != 30 {
		t.Errorf("ClockTime = %02d:%02d, want 07:30", h, m)
	}
	if cfg.Newsletter.Name != "Regional Health Digest" {
		t.Errorf("Name = %q", cfg.Newsletter.Name)
	}
	if cfg.Newsletter.SectionCap != 5 {
		t.Errorf("SectionCap = %d, want 5", cfg.Newsletter.SectionCap)
	}
	if len(cfg.Keywords.Payer) != 1 || cfg.Keywords.Payer[0] != "medicare advantage" {
		t.Errorf("Payer keywords = %v", cfg.Keywords.Payer)
	}
	// Untouched sections keep defaults.
	if cfg.RateLimits.ScrapePerHour != 50 {
		t.Errorf("ScrapePerHour = %d, want default 50", cfg.RateLimits.ScrapePerHour)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].Scraper != "rss" {
		t.Errorf("Sites = %v", cfg.Sites)
	}
}

func TestCredentialsComeFromEnvOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
email:
  smtpHost: mail.example.org
  password: should-be-ignored
  to:
    - leaked@example.org
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EMAIL_PASSWORD", "env-secret")
	t.Setenv("EMAIL_TO", "a@example.org, b@example.org")

	cfg := Load(path)

	if cfg.Email.SMTPHost != "mail.example.org" {
		t.Errorf("SMTPHost = %q", cfg.Email.SMTPHost)
	}
	if cfg.Email.Password != "env-secret" {
		t.Errorf("Password = %q, want env value", cfg.Email.Password)
	}
	if len(cfg.Email.To) != 2 || cfg.Email.To[0] != "a@example.org" || cfg.Email.To[1] != "b@example.org" {
		t.Errorf("To = %v", cfg.Email.To)
	}
}

func TestLoadBadFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Newsletter.SectionCap != 10 {
		t.Errorf("SectionCap = %d, want default after parse failure", cfg.Newsletter.SectionCap)
	}
}

func TestBadTimezoneRevertsToUTC(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scheduling.Timezone = "Mars/Olympus"
	cfg.bindTimezone()
	if got := cfg.Scheduling.Location().String(); got != "UTC" {
		t.Errorf("Location = %q, want UTC", got)
	}
}
