package invitewave

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/hyewave/invitewave/invitewave/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log        LogConfig         `toml:"log"`
	Bot        BotConfig         `toml:"bot"`
	DB         database.DBConfig `toml:"db"`
	Spaces     SpacesConfig      `toml:"spaces"`
	Pool       PoolConfig        `toml:"pool"`
	Allocation AllocationConfig  `toml:"allocation"`
	Fraud      FraudConfig       `toml:"fraud"`
	Provider   ProviderConfig    `toml:"provider"`
	Billing    BillingConfig     `toml:"billing"`
	Generation GenerationConfig  `toml:"generation"`
}

type BotConfig struct {
	DevGuilds       []snowflake.ID `toml:"dev_guilds"`
	Token           string         `toml:"token"`
	OperatorChannel snowflake.ID   `toml:"operator_channel"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type SpacesConfig struct {
	Key         string `toml:"key"`
	Secret      string `toml:"secret"`
	Region      string `toml:"region"`
	Bucket      string `toml:"bucket"`
	ArtifactDir string `toml:"artifact_dir"`
}

type PoolConfig struct {
	// CodeUsageLimit caps the lifetime slot total per code value.
	CodeUsageLimit int `toml:"code_usage_limit"`
}

type AllocationConfig struct {
	IntervalSeconds  int `toml:"interval_seconds"`
	LeaseTTLSeconds  int `toml:"lease_ttl_seconds"`
	SendDelayMillis  int `toml:"send_delay_millis"`
	ReminderHours    int `toml:"reminder_hours"`
}

type FraudConfig struct {
	MaxComplaints   int `toml:"max_complaints"`
	CooldownMinutes int `toml:"cooldown_minutes"`
}

type ProviderConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type BillingConfig struct {
	BaseURL       string `toml:"base_url"`
	Token         string `toml:"token"`
	WebhookAddr   string `toml:"webhook_addr"`
	WebhookSecret string `toml:"webhook_secret"`
}

type GenerationConfig struct {
	Concurrency int `toml:"concurrency"`
	Backlog     int `toml:"backlog"`
}
