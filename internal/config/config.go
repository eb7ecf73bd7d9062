package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultLineAPIBase    = "https://api.line.me"
	DefaultContentAPIBase = "https://api-data.line.me"
	DefaultBranch         = "main"
	DefaultUploadDir      = "uploads"
	DefaultMaxImageBytes  = 300 * 1024
	DefaultMaxWidth       = 1200
	DefaultMaxHeight      = 1200
	DefaultQuality        = 80
	DefaultQualityFloor   = 30
	DefaultQualityStep    = 10
	DefaultQueueBuffer    = 64
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Line   LineConfig   `toml:"line"`
	GitHub GitHubConfig `toml:"github"`
	Image  ImageConfig  `toml:"image"`
	Queue  QueueConfig  `toml:"queue"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LineConfig carries the messaging-platform credentials. ChannelSecret may be
// empty: signature verification is then skipped so the webhook endpoint stays
// reachable during initial setup.
type LineConfig struct {
	ChannelSecret  string `toml:"channel_secret"`
	AccessToken    string `toml:"access_token" validate:"required"`
	APIBase        string `toml:"api_base" validate:"url"`
	ContentAPIBase string `toml:"content_api_base" validate:"url"`
}

type GitHubConfig struct {
	Token     string `toml:"token" validate:"required"`
	Owner     string `toml:"owner" validate:"required"`
	Repo      string `toml:"repo" validate:"required"`
	Branch    string `toml:"branch" validate:"required"`
	UploadDir string `toml:"upload_dir"`
}

// ImageConfig bounds the downsized variant. MaxBytes is a best-effort target:
// encoding stops at QualityFloor even when the budget is not met.
type ImageConfig struct {
	MaxBytes     int64 `toml:"max_bytes" validate:"gt=0"`
	MaxWidth     int   `toml:"max_width" validate:"gt=0"`
	MaxHeight    int   `toml:"max_height" validate:"gt=0"`
	Quality      int   `toml:"quality" validate:"gt=0,lte=100"`
	QualityFloor int   `toml:"quality_floor" validate:"gt=0,lte=100"`
	QualityStep  int   `toml:"quality_step" validate:"gt=0"`
}

type QueueConfig struct {
	Buffer int `toml:"buffer" validate:"gt=0"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Line: LineConfig{
			APIBase:        DefaultLineAPIBase,
			ContentAPIBase: DefaultContentAPIBase,
		},
		GitHub: GitHubConfig{
			Branch:    DefaultBranch,
			UploadDir: DefaultUploadDir,
		},
		Image: ImageConfig{
			MaxBytes:     DefaultMaxImageBytes,
			MaxWidth:     DefaultMaxWidth,
			MaxHeight:    DefaultMaxHeight,
			Quality:      DefaultQuality,
			QualityFloor: DefaultQualityFloor,
			QualityStep:  DefaultQualityStep,
		},
		Queue: QueueConfig{
			Buffer: DefaultQueueBuffer,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets deployment secrets override whatever the config file holds.
func applyEnv(cfg *Config) {
	overrideString(&cfg.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	overrideString(&cfg.Line.AccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	overrideString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	overrideString(&cfg.GitHub.Owner, "GITHUB_OWNER")
	overrideString(&cfg.GitHub.Repo, "GITHUB_REPO")
	overrideString(&cfg.GitHub.Branch, "GITHUB_BRANCH")
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate checks that everything required at process start is present.
// The channel secret is deliberately not required (see LineConfig).
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
