package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mkueh/citibike-analyse/internal/output"
	"github.com/mkueh/citibike-analyse/internal/store"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render all precomputed routes to an HTML map",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		analysis, err := store.LoadAnalysis(analysisPath(cfg.OutputDir()))
		if err != nil {
			// Fall back to the routes payload when analyse has not run yet.
			payload, perr := store.LoadPayload(cfg.RoutesPath)
			if perr != nil {
				log.Fatalf("loading analysis: %v", err)
			}
			analysis = &store.Analysis{
				Rides:     payload.Rides,
				Routes:    payload.Routes,
				BBox:      payload.BBox,
				CreatedAt: payload.CreatedAt,
			}
		}

		path, err := output.WriteMap(cfg.OutputDir(), "route_map", *analysis, output.MapOptions{
			Title:           "Precomputed routes",
			IncludeRoutes:   true,
			ShowMarkers:     true,
			OnlyIntersected: cfg.OnlyIntersected,
		})
		if err != nil {
			log.Fatalf("writing route map: %v", err)
		}
		log.Printf("route map written to %s", path)
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
}
