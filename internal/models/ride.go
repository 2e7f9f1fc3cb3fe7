package models

import "time"

// Ride is a single Citi Bike trip record.
type Ride struct {
	RideID    string    `json:"ride_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Start     Location  `json:"start"`
	End       Location  `json:"end"`
}

// Duration returns the ride duration, zero when either timestamp is missing.
func (r Ride) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
