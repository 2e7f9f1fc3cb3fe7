package models

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type Config struct {
	RawCitiPath  string `mapstructure:"raw_citi_path"`
	RawNypdPath  string `mapstructure:"raw_nypd_path"`
	CacheDir     string `mapstructure:"cache_dir"`
	OutputPath   string `mapstructure:"output_path"`
	OutputFolder string `mapstructure:"output_folder"`
	OutputFormat string `mapstructure:"output_format"`
	RoutesPath   string `mapstructure:"routes_path"`

	TripYears       []int  `mapstructure:"trip_years"`
	TripdataBucket  string `mapstructure:"tripdata_bucket"`
	TripdataRegion  string `mapstructure:"tripdata_region"`
	OverpassURL     string `mapstructure:"overpass_url"`
	OverpassTimeout int    `mapstructure:"overpass_timeout"` // seconds

	SampleSize int     `mapstructure:"sample_size"`
	MaxRides   int     `mapstructure:"max_rides"`
	RandomSeed int64   `mapstructure:"random_seed"`
	BBoxPad    float64 `mapstructure:"bbox_pad"`
	Workers    int     `mapstructure:"workers"`

	ClusterBufferM  float64 `mapstructure:"cluster_buffer_m"`
	ClusterMaxSize  int     `mapstructure:"cluster_max_size"`
	ClusterMaxDistM float64 `mapstructure:"cluster_max_dist_m"`
	OnlyIntersected bool    `mapstructure:"only_intersected"`

	PostgresEnabled bool           `mapstructure:"postgres_enabled"`
	Database        DatabaseConfig `mapstructure:"database"`

	KafkaEnabled    bool   `mapstructure:"kafka_enabled"`
	KafkaBrokerList string `mapstructure:"kafka_broker_list"`

	ServeAddr string `mapstructure:"serve_addr"`

	// Synthetic ride generation (genrides).
	GenRides     int       `mapstructure:"gen_rides"`
	GenYear      int       `mapstructure:"gen_year"`
	GenStartDate time.Time `mapstructure:"gen_start_date"`
	GenBBox      BBox      `mapstructure:"gen_bbox"`
}

// OutputDir is the single directory receiving every analysis artifact:
// sink files, GeoJSON, maps, and the stored analysis.
func (c *Config) OutputDir() string {
	return filepath.Join(c.OutputPath, c.OutputFolder)
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Default config location
		viper.AddConfigPath("examples")
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	viper.AutomaticEnv() // Read in environment variables that match

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("tripdata_bucket", "tripdata")
	viper.SetDefault("tripdata_region", "us-east-1")
	viper.SetDefault("overpass_url", "https://overpass-api.de/api/interpreter")
	viper.SetDefault("overpass_timeout", 180)
	viper.SetDefault("trip_years", []int{2023, 2024, 2025})
	viper.SetDefault("output_format", "csv")
	viper.SetDefault("bbox_pad", 0.02)
	viper.SetDefault("cluster_buffer_m", 50.0)
	viper.SetDefault("cluster_max_size", 10)
	viper.SetDefault("cluster_max_dist_m", 50.0)
	viper.SetDefault("only_intersected", true)
	viper.SetDefault("serve_addr", ":8080")
}
