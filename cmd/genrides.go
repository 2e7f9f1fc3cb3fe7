package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkueh/citibike-analyse/internal/factories"
	"github.com/mkueh/citibike-analyse/internal/models"
)

var genridesCmd = &cobra.Command{
	Use:   "genrides",
	Short: "Generate synthetic trip CSVs for offline experimentation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		n := cfg.GenRides
		if n <= 0 {
			n = 10000
		}
		year := cfg.GenYear
		if year == 0 {
			year = time.Now().Year()
		}
		bbox := cfg.GenBBox
		if bbox == (models.BBox{}) {
			// Lower Manhattan and nearby Brooklyn.
			bbox = models.BBox{North: 40.78, South: 40.66, East: -73.92, West: -74.03}
		}

		factory := factories.NewRideFactory(cfg.RandomSeed)
		path, err := factory.WriteTripdataCSV(cfg.RawCitiPath, year, n, bbox, cfg.GenStartDate)
		if err != nil {
			log.Fatalf("generating rides: %v", err)
		}
		log.Printf("wrote %d synthetic rides to %s", n, path)
	},
}

func init() {
	rootCmd.AddCommand(genridesCmd)
}
