package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkueh/citibike-analyse/internal/models"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "citibike-analyse",
	Short: "Analyses Citi Bike trips against NYPD crash data",
	Long: `citibike-analyse downloads NYC Citi Bike trip dumps, routes sampled trips
over the OSM bike network, clusters cyclist crash locations and reports how
often routes pass through crash hotspots.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")

	flags := rootCmd.PersistentFlags()
	flags.String("raw-citi-path", "", "Directory holding extracted tripdata CSV folders")
	flags.String("raw-nypd-path", "", "Directory holding the NYPD collisions CSV")
	flags.String("cache-dir", "", "Street network cache directory")
	flags.String("output-folder", "", "Folder name for analysis outputs under the output path")
	flags.String("output-format", "csv", "Output format (csv, json, parquet, console)")
	flags.String("routes-path", "", "Path of the precomputed routes payload")
	flags.Int("sample-size", 0, "Number of rides to sample (0 = all loaded rides)")
	flags.Int64("random-seed", 42, "Seed for deterministic ride sampling")
	flags.Int("workers", 0, "Routing worker count (0 = NumCPU)")

	// Config keys use underscores, flags use dashes; bind them pairwise so
	// the flags actually reach the config.
	for key, flag := range map[string]string{
		"raw_citi_path": "raw-citi-path",
		"raw_nypd_path": "raw-nypd-path",
		"cache_dir":     "cache-dir",
		"output_folder": "output-folder",
		"output_format": "output-format",
		"routes_path":   "routes-path",
		"sample_size":   "sample-size",
		"random_seed":   "random-seed",
		"workers":       "workers",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func loadConfig() *models.Config {
	cfg, err := models.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
