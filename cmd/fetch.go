package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mkueh/citibike-analyse/internal/fetch"
	"github.com/mkueh/citibike-analyse/internal/graceful"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract Citi Bike trip dumps from the public S3 bucket",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx, cancel := graceful.Context()
		defer cancel()

		d, err := fetch.NewDownloader(ctx, cfg.TripdataBucket, cfg.TripdataRegion, cfg.RawCitiPath)
		if err != nil {
			log.Fatalf("creating tripdata downloader: %v", err)
		}
		if err := d.Run(ctx, cfg.TripYears); err != nil {
			log.Fatalf("fetching tripdata: %v", err)
		}
		log.Println("tripdata up to date")
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
