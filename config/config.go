package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config はアプリケーションの設定を保持します。
type Config struct {
	Discord struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"discord"`
	Bot struct {
		Prefix   string   `mapstructure:"prefix"`
		Activity string   `mapstructure:"activity"`
		Devs     []string `mapstructure:"devs"`
		Testers  []string `mapstructure:"testers"`
	} `mapstructure:"bot"`
	Storage struct {
		ErrorsDir  string `mapstructure:"errors_dir"`
		GuildsFile string `mapstructure:"guilds_file"`
		Database   string `mapstructure:"database"`
	} `mapstructure:"storage"`
	Log struct {
		File       string `mapstructure:"file"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
		Compress   bool   `mapstructure:"compress"`
		Debug      bool   `mapstructure:"debug"`
	} `mapstructure:"log"`
	Retention struct {
		Schedule string        `mapstructure:"schedule"`
		MaxAge   time.Duration `mapstructure:"max_age"`
	} `mapstructure:"retention"`
}

// ErrNoToken はBotトークンが未設定のときに返されます。
var ErrNoToken = errors.New("discord token is not set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.prefix", "!")
	v.SetDefault("storage.errors_dir", "errors")
	v.SetDefault("storage.guilds_file", "data/guilds.json")
	v.SetDefault("storage.database", "tanuki.db")
	v.SetDefault("log.file", "tanuki.log")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("retention.schedule", "@daily")
	v.SetDefault("retention.max_age", time.Duration(0))
}

// Load は設定ファイルから設定を読み込みます。
// path が空の場合はカレントディレクトリの config.yaml を探します。
// ファイルが見つからない場合はデフォルト値と環境変数だけで続行します。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("discord.token", "DISCORD_BOT_TOKEN"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate はBotを起動するのに必要な値が揃っているか確認します。
func (c *Config) Validate() error {
	if c.Discord.Token == "" || c.Discord.Token == "YOUR_DISCORD_BOT_TOKEN_HERE" {
		return ErrNoToken
	}
	if c.Bot.Prefix == "" {
		return errors.New("bot prefix must not be empty")
	}
	return nil
}

// IsDev は指定したユーザーが開発チームに含まれるかを返します。
func (c *Config) IsDev(userID string) bool {
	return slices.Contains(c.Bot.Devs, userID)
}

// IsTester は指定したユーザーがテスターに含まれるかを返します。
func (c *Config) IsTester(userID string) bool {
	return slices.Contains(c.Bot.Testers, userID)
}
