package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"comment-editor/internal/atomicfile"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "COMMENT_EDITOR"

// DefaultExtensions are the file types a directory scan picks up.
var DefaultExtensions = []string{
	".py", ".c", ".cc", ".cpp", ".h", ".hpp", ".go", ".java", ".rs",
	".js", ".jsx", ".ts", ".tsx", ".cs", ".swift", ".kt", ".sh", ".rb",
}

type Config struct {
	LogLevel   string   `mapstructure:"log_level"`
	Workers    int      `mapstructure:"workers"`
	Backup     bool     `mapstructure:"backup"`
	MaxBackups int      `mapstructure:"max_backups"`
	Journal    string   `mapstructure:"journal"`
	Extensions []string `mapstructure:"extensions"`
}

// Load reads .env, then defaults, the YAML file and COMMENT_EDITOR_*
// environment variables, later sources winning. Without cfgFile,
// .comment-editor.yaml in the working directory is used when present.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("workers", 4)
	v.SetDefault("backup", false)
	v.SetDefault("max_backups", 5)
	v.SetDefault("journal", "")
	v.SetDefault("extensions", DefaultExtensions)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".comment-editor")
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Using config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	for i, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Extensions[i] = ext
	}
	return &cfg, nil
}

// WriteOptions returns the persistence options for saves.
func (c *Config) WriteOptions() atomicfile.Options {
	return atomicfile.Options{Backup: c.Backup, MaxBackups: c.MaxBackups}
}
