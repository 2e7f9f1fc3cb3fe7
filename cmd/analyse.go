package cmd

import (
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkueh/citibike-analyse/internal/analyse"
	"github.com/mkueh/citibike-analyse/internal/graceful"
	"github.com/mkueh/citibike-analyse/internal/ingest"
	"github.com/mkueh/citibike-analyse/internal/output"
	"github.com/mkueh/citibike-analyse/internal/store"
)

var analyseCmd = &cobra.Command{
	Use:   "analyse",
	Short: "Cluster cyclist crashes and enrich them with route intersections",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx, cancel := graceful.Context()
		defer cancel()

		payload, err := store.LoadPayload(cfg.RoutesPath)
		if err != nil {
			log.Fatalf("loading precomputed routes: %v", err)
		}
		log.Printf("loaded %d precomputed routes", len(payload.Routes))

		minTime, maxTime := rideTimespan(payload)
		crashLoader := ingest.NewCrashLoader(cfg.RawNypdPath, cfg.ClusterBufferM, cfg.ClusterMaxSize, cfg.ClusterMaxDistM)
		clusters, err := crashLoader.LoadClusters(minTime, maxTime, &payload.BBox)
		if err != nil {
			log.Fatalf("loading crash clusters: %v", err)
		}
		log.Printf("clustered crashes into %d groups", len(clusters))

		enricher := analyse.NewEnricher(clusters, payload.Routes)
		enriched := enricher.Enrich(clusters)

		sink, err := output.NewSink(cfg)
		if err != nil {
			log.Fatalf("creating output sink: %v", err)
		}
		if err := output.EmitClusters(sink, enriched, cfg.OnlyIntersected); err != nil {
			log.Fatalf("writing clusters: %v", err)
		}
		if err := output.EmitRouteSummaries(sink, payload.Rides, payload.Routes); err != nil {
			log.Fatalf("writing route summaries: %v", err)
		}
		if err := sink.Close(); err != nil {
			log.Fatalf("closing output sink: %v", err)
		}

		if cfg.KafkaEnabled {
			kafka, err := output.NewKafkaSink(cfg.KafkaBrokerList)
			if err != nil {
				log.Fatalf("connecting to kafka: %v", err)
			}
			if err := output.EmitClusters(kafka, enriched, cfg.OnlyIntersected); err != nil {
				log.Fatalf("publishing clusters to kafka: %v", err)
			}
			if err := output.EmitRouteSummaries(kafka, payload.Rides, payload.Routes); err != nil {
				log.Fatalf("publishing route summaries to kafka: %v", err)
			}
			if err := kafka.Close(); err != nil {
				log.Fatalf("closing kafka producer: %v", err)
			}
		}

		if cfg.PostgresEnabled {
			repo, err := output.NewPostgresRepository(ctx, cfg.Database)
			if err != nil {
				log.Fatalf("connecting to postgres: %v", err)
			}
			defer repo.Close()
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Fatalf("preparing postgres schema: %v", err)
			}
			if err := repo.BulkInsertClusters(ctx, enriched); err != nil {
				log.Fatalf("inserting clusters: %v", err)
			}
			if err := repo.BulkInsertRouteSummaries(ctx, payload.Rides, payload.Routes); err != nil {
				log.Fatalf("inserting route summaries: %v", err)
			}
		}

		analysis := store.Analysis{
			Clusters:  enriched,
			Rides:     payload.Rides,
			Routes:    payload.Routes,
			BBox:      payload.BBox,
			CreatedAt: time.Now().UTC(),
		}

		clustersJSON, err := output.ClustersGeoJSON(enriched, cfg.OnlyIntersected)
		if err != nil {
			log.Fatalf("encoding clusters geojson: %v", err)
		}
		if _, err := output.WriteGeoJSON(cfg.OutputDir(), "clusters", clustersJSON); err != nil {
			log.Fatalf("writing clusters geojson: %v", err)
		}
		routesJSON, err := output.RoutesGeoJSON(payload.Rides, payload.Routes)
		if err != nil {
			log.Fatalf("encoding routes geojson: %v", err)
		}
		if _, err := output.WriteGeoJSON(cfg.OutputDir(), "routes", routesJSON); err != nil {
			log.Fatalf("writing routes geojson: %v", err)
		}

		mapPath, err := output.WriteMap(cfg.OutputDir(), "cluster_map", analysis, output.MapOptions{
			Title:           "Crash cluster map",
			OnlyIntersected: cfg.OnlyIntersected,
		})
		if err != nil {
			log.Fatalf("writing cluster map: %v", err)
		}
		log.Printf("cluster map written to %s", mapPath)

		if err := store.SaveAnalysis(analysisPath(cfg.OutputDir()), &analysis); err != nil {
			log.Fatalf("saving analysis: %v", err)
		}
	},
}

func analysisPath(outputDir string) string {
	return filepath.Join(outputDir, "analysis.gob")
}

func rideTimespan(p *store.Payload) (time.Time, time.Time) {
	var minTime, maxTime time.Time
	for _, ride := range p.Rides {
		if ride.StartedAt.IsZero() {
			continue
		}
		if minTime.IsZero() || ride.StartedAt.Before(minTime) {
			minTime = ride.StartedAt
		}
		end := ride.EndedAt
		if end.IsZero() {
			end = ride.StartedAt
		}
		if end.After(maxTime) {
			maxTime = end
		}
	}
	return minTime, maxTime
}

func init() {
	rootCmd.AddCommand(analyseCmd)
}
