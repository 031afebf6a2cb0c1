package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Inputs    InputsConfig    `yaml:"inputs" mapstructure:"inputs"`
	Columns   ColumnsConfig   `yaml:"columns" mapstructure:"columns"`
	Moran     MoranConfig     `yaml:"moran" mapstructure:"moran"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Charts    ChartsConfig    `yaml:"charts" mapstructure:"charts"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputsConfig holds default paths for the three input tables.
type InputsConfig struct {
	Habitat    string `yaml:"habitat" mapstructure:"habitat"`
	Detections string `yaml:"detections" mapstructure:"detections"`
	Candidates string `yaml:"candidates" mapstructure:"candidates"`
}

// ColumnsConfig names the input columns the pipeline depends on. The loaders
// validate these against each file's header instead of relying on column
// position.
type ColumnsConfig struct {
	SiteID        string   `yaml:"site_id" mapstructure:"site_id"`
	Longitude     string   `yaml:"longitude" mapstructure:"longitude"`
	Latitude      string   `yaml:"latitude" mapstructure:"latitude"`
	Depth         string   `yaml:"depth" mapstructure:"depth"`
	HydraulicHead string   `yaml:"hydraulic_head" mapstructure:"hydraulic_head"`
	Hauls         []string `yaml:"hauls" mapstructure:"hauls"`
}

// MoranConfig configures the spatial autocorrelation check.
type MoranConfig struct {
	Covariate string `yaml:"covariate" mapstructure:"covariate"`
}

// SelectionConfig configures the probability-weighted draw.
type SelectionConfig struct {
	Season       string   `yaml:"season" mapstructure:"season"`
	SampleSize   int      `yaml:"sample_size" mapstructure:"sample_size"`
	Seed         int64    `yaml:"seed" mapstructure:"seed"`
	ExcludeSites []string `yaml:"exclude_sites" mapstructure:"exclude_sites"`
}

// ChartsConfig configures diagnostic chart rendering.
type ChartsConfig struct {
	Dir          string  `yaml:"dir" mapstructure:"dir"`
	WidthInches  float64 `yaml:"width_inches" mapstructure:"width_inches"`
	HeightInches float64 `yaml:"height_inches" mapstructure:"height_inches"`
}

// StoreConfig configures the optional run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("columns.site_id", "Pool.ID")
	v.SetDefault("columns.longitude", "Longitude")
	v.SetDefault("columns.latitude", "Latitude")
	v.SetDefault("columns.depth", "Mean.Depth")
	v.SetDefault("columns.hydraulic_head", "Hydraulic.Head")
	v.SetDefault("columns.hauls", []string{"Haul.1", "Haul.2", "Haul.3"})
	v.SetDefault("moran.covariate", "Mean.Depth")
	v.SetDefault("selection.sample_size", 100)
	v.SetDefault("selection.seed", 42)
	v.SetDefault("charts.width_inches", 8.0)
	v.SetDefault("charts.height_inches", 6.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
