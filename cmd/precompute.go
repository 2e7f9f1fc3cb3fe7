package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkueh/citibike-analyse/internal/graceful"
	"github.com/mkueh/citibike-analyse/internal/ingest"
	"github.com/mkueh/citibike-analyse/internal/models"
	"github.com/mkueh/citibike-analyse/internal/network"
	"github.com/mkueh/citibike-analyse/internal/store"
)

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Sample rides and precompute their routes over the bike network",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx, cancel := graceful.Context()
		defer cancel()

		loader := ingest.NewRideLoader(cfg.RawCitiPath, cfg.TripYears)
		var rides []models.Ride
		var err error
		if cfg.SampleSize > 0 {
			rides, err = loader.Sample(cfg.RandomSeed, cfg.SampleSize)
		} else {
			rides, err = loader.Load(cfg.MaxRides)
		}
		if err != nil {
			log.Fatalf("loading rides: %v", err)
		}

		bbox, err := models.BBoxFromRides(rides, cfg.BBoxPad)
		if err != nil {
			log.Fatalf("computing bounding box: %v", err)
		}

		netLoader, err := network.NewLoader(cfg.CacheDir, cfg.OverpassURL, time.Duration(cfg.OverpassTimeout)*time.Second)
		if err != nil {
			log.Fatalf("opening network cache: %v", err)
		}
		graph, err := netLoader.BikeNetwork(ctx, bbox)
		if err != nil {
			log.Fatalf("loading bike network: %v", err)
		}
		log.Printf("bike network ready: %d nodes", len(graph.Nodes))

		builder := network.NewBuilder(graph)
		routes, err := builder.BuildRoutes(ctx, rides, cfg.Workers)
		if err != nil {
			log.Fatalf("building routes: %v", err)
		}

		payload := &store.Payload{
			Rides:  rides,
			Routes: routes,
			BBox:   bbox,
			Settings: store.Settings{
				SampleSize: cfg.SampleSize,
				RandomSeed: cfg.RandomSeed,
				BBoxPad:    cfg.BBoxPad,
				Workers:    cfg.Workers,
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := store.SavePayload(cfg.RoutesPath, payload); err != nil {
			log.Fatalf("saving payload: %v", err)
		}
		log.Printf("wrote %d routes to %s", len(routes), cfg.RoutesPath)
	},
}

func init() {
	rootCmd.AddCommand(precomputeCmd)
}
