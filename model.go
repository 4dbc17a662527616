package shoes

import "time"

// Activity is one completed session as reported by the platform. Distance and
// elevation gain are meters, moving time is seconds; unit conversion happens
// at report time only. GearName is populated by the listing operation, never
// by the fetch adapter.
type Activity struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	StartDate     time.Time `json:"start_date"`
	Distance      float64   `json:"distance"`
	MovingTime    int       `json:"moving_time"`
	ElevationGain float64   `json:"elevation_gain"`
	GearID        string    `json:"gear_id,omitempty"`
	GearName      string    `json:"gear_name,omitempty"`
}

// Gear is a registered shoe. Distance is the platform's lifetime total in
// meters for the shoe, independent of any fetch window.
type Gear struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Primary  bool    `json:"primary"`
}

// Row is one aggregate for a (gear, period) pair. Period is empty in the
// all-time summary, otherwise "2006-W02", "2006-01" or "2006" depending on
// granularity.
type Row struct {
	Period        string  `json:"period,omitempty"`
	GearID        string  `json:"gear_id"`
	GearName      string  `json:"gear_name"`
	Distance      float64 `json:"distance_km"`
	MovingTime    float64 `json:"moving_time_hours"`
	ElevationGain float64 `json:"elevation_gain_m"`
	Count         int     `json:"activity_count"`
}
