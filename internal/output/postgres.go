package output

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// PostgresRepository stores enriched clusters and route summaries.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, cfg models.DatabaseConfig) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// EnsureSchema creates the result tables when they are missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS enriched_clusters (
            id                 BIGSERIAL PRIMARY KEY,
            centroid_lat       DOUBLE PRECISION NOT NULL,
            centroid_lon       DOUBLE PRECISION NOT NULL,
            crash_count        INTEGER NOT NULL,
            max_dist_m         DOUBLE PRECISION NOT NULL,
            ride_intersections INTEGER NOT NULL,
            crash_per_rides    DOUBLE PRECISION NOT NULL,
            created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	if err != nil {
		return fmt.Errorf("creating enriched_clusters: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS route_summaries (
            ride_id      TEXT PRIMARY KEY,
            length_m     DOUBLE PRECISION NOT NULL,
            method       TEXT NOT NULL,
            duration_min DOUBLE PRECISION,
            speed_kmh    DOUBLE PRECISION,
            created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	if err != nil {
		return fmt.Errorf("creating route_summaries: %w", err)
	}
	return nil
}

// BulkInsertClusters writes all clusters in one transaction.
func (r *PostgresRepository) BulkInsertClusters(ctx context.Context, clusters []models.EnrichedCrashCluster) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmt := `
        INSERT INTO enriched_clusters (
            centroid_lat, centroid_lon, crash_count,
            max_dist_m, ride_intersections, crash_per_rides
        ) VALUES ($1, $2, $3, $4, $5, $6)`

	for _, c := range clusters {
		_, err = tx.Exec(ctx, stmt,
			c.Centroid.Lat,
			c.Centroid.Lon,
			c.Count,
			c.MaxDist,
			c.RideIntersections,
			c.CrashPerRides,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// BulkInsertRouteSummaries upserts one row per ride.
func (r *PostgresRepository) BulkInsertRouteSummaries(ctx context.Context, rides []models.Ride, routes []models.Route) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmt := `
        INSERT INTO route_summaries (ride_id, length_m, method, duration_min, speed_kmh)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (ride_id) DO UPDATE SET
            length_m = EXCLUDED.length_m,
            method = EXCLUDED.method,
            duration_min = EXCLUDED.duration_min,
            speed_kmh = EXCLUDED.speed_kmh`

	for i := range rides {
		if i >= len(routes) {
			break
		}
		row := NewRouteRow(rides[i], routes[i])
		_, err = tx.Exec(ctx, stmt, row.RideID, row.LengthM, row.Method, row.DurationMin, row.SpeedKmh)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}
