package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

func TestPersistentFlagsReachConfigKeys(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	tests := []struct {
		flag  string
		value string
		key   string
	}{
		{"raw-citi-path", "/data/trips", "raw_citi_path"},
		{"output-format", "parquet", "output_format"},
		{"sample-size", "500", "sample_size"},
		{"workers", "8", "workers"},
	}
	for _, tt := range tests {
		if err := flags.Set(tt.flag, tt.value); err != nil {
			t.Fatalf("setting --%s: %v", tt.flag, err)
		}
		if got := viper.GetString(tt.key); got != tt.value {
			t.Errorf("viper key %q = %q after --%s=%s, want %q", tt.key, got, tt.flag, tt.value, tt.value)
		}
	}
}
