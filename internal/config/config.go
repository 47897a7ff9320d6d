// Package config loads engine configuration from an optional YAML file with
// environment-variable overrides. Pacing constants for the growth simulator
// live here so designers can retune them without touching the state machine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read-only after Load returns.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Growth   GrowthConfig   `yaml:"growth"`
	Queue    QueueConfig    `yaml:"queue"`
	Push     PushConfig     `yaml:"push"`
	Backup   BackupConfig   `yaml:"backup"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// GrowthConfig holds the fixed per-action gains and costs of the plant
// simulator. Gains are flat, not proportional, so pacing is tuned here.
type GrowthConfig struct {
	WateringHealthGain  int `yaml:"watering_health_gain"`
	InitialHealth       int `yaml:"initial_health"`
	ApprovalExperience  int `yaml:"approval_experience"`
	BaseStageExperience int `yaml:"base_stage_experience"`
	StageExperienceStep int `yaml:"stage_experience_step"`
}

// ExperienceToAdvance returns the experience cost of leaving the given stage.
func (g GrowthConfig) ExperienceToAdvance(stage int) int {
	if stage < 1 {
		stage = 1
	}
	return g.BaseStageExperience + g.StageExperienceStep*(stage-1)
}

type QueueConfig struct {
	RetryAttempts int      `yaml:"retry_attempts"`
	RetryBackoff  Duration `yaml:"retry_backoff"`
}

// PushConfig holds VAPID keys. Env-only, never read from YAML.
type PushConfig struct {
	VAPIDPublicKey  string `yaml:"-"`
	VAPIDPrivateKey string `yaml:"-"`
}

type BackupConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// Credentials are env-only, never read from YAML.
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(5 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Database: DatabaseConfig{Path: "growpromise.db"},
		Log:      LogConfig{Level: "info"},
		Growth: GrowthConfig{
			WateringHealthGain:  10,
			InitialHealth:       80,
			ApprovalExperience:  20,
			BaseStageExperience: 100,
			StageExperienceStep: 50,
		},
		Queue: QueueConfig{
			RetryAttempts: 3,
			RetryBackoff:  Duration(500 * time.Millisecond),
		},
	}
}

// Load reads the YAML file at path (if path is non-empty and the file
// exists) on top of defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GROWPROMISE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GROWPROMISE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("GROWPROMISE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	cfg.Push.VAPIDPublicKey = os.Getenv("GROWPROMISE_VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("GROWPROMISE_VAPID_PRIVATE_KEY")
	if v := os.Getenv("GROWPROMISE_BACKUP_BUCKET"); v != "" {
		cfg.Backup.Bucket = v
	}
	if v := os.Getenv("GROWPROMISE_BACKUP_REGION"); v != "" {
		cfg.Backup.Region = v
	}
	if v := os.Getenv("GROWPROMISE_BACKUP_ENDPOINT"); v != "" {
		cfg.Backup.Endpoint = v
	}
	cfg.Backup.AccessKey = os.Getenv("GROWPROMISE_BACKUP_ACCESS_KEY")
	cfg.Backup.SecretKey = os.Getenv("GROWPROMISE_BACKUP_SECRET_KEY")
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Growth.WateringHealthGain <= 0 {
		return fmt.Errorf("watering_health_gain must be positive")
	}
	if c.Growth.InitialHealth < 0 || c.Growth.InitialHealth > 100 {
		return fmt.Errorf("initial_health must be between 0 and 100")
	}
	if c.Growth.ApprovalExperience <= 0 {
		return fmt.Errorf("approval_experience must be positive")
	}
	if c.Growth.BaseStageExperience <= 0 {
		return fmt.Errorf("base_stage_experience must be positive")
	}
	if c.Queue.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	return nil
}

// Duration wraps time.Duration so YAML values can be written as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
