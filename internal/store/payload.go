// Package store persists precomputed routes and analysis results as gob
// payloads under the cache/output directories.
package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mkueh/citibike-analyse/internal/models"
)

// Settings records the parameters a payload was precomputed with.
type Settings struct {
	SampleSize int
	RandomSeed int64
	BBoxPad    float64
	Workers    int
}

// Payload couples sampled rides with their computed route geometries.
// Rides and Routes are index-aligned.
type Payload struct {
	Rides     []models.Ride
	Routes    []models.Route
	BBox      models.BBox
	Settings  Settings
	CreatedAt time.Time
}

// Analysis is the persisted outcome of an analyse run, consumed by serve.
type Analysis struct {
	Clusters  []models.EnrichedCrashCluster
	Rides     []models.Ride
	Routes    []models.Route
	BBox      models.BBox
	CreatedAt time.Time
}

func SavePayload(path string, p *Payload) error {
	return save(path, p)
}

func LoadPayload(path string) (*Payload, error) {
	var p Payload
	if err := load(path, &p); err != nil {
		return nil, err
	}
	if len(p.Rides) != len(p.Routes) {
		return nil, fmt.Errorf("corrupt payload: %d rides vs %d routes", len(p.Rides), len(p.Routes))
	}
	return &p, nil
}

func SaveAnalysis(path string, a *Analysis) error {
	return save(path, a)
}

func LoadAnalysis(path string) (*Analysis, error) {
	var a Analysis
	if err := load(path, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func save(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(value); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

func load(path string, value interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("no precomputed data at %s: %w", path, err)
	}
	defer file.Close()
	if err := gob.NewDecoder(file).Decode(value); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
