// Package model holds the core data types shared across the selection pipeline.
package model

// Site is one candidate survey pool from the seasonal candidate table.
// Attrs preserves any extra input columns verbatim for reporting.
type Site struct {
	PoolID        string            `json:"pool_id"`
	Longitude     float64           `json:"longitude"`
	Latitude      float64           `json:"latitude"`
	MeanDepth     float64           `json:"mean_depth"`
	HydraulicHead float64           `json:"hydraulic_head"`
	Attrs         map[string]string `json:"attrs,omitempty"`
}

// HabitatRecord is one previously measured site used by the spatial
// autocorrelation check: coordinates plus a single scalar covariate.
type HabitatRecord struct {
	PoolID    string  `json:"pool_id"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Value     float64 `json:"value"`
}

// DetectionHistory is one historically surveyed site with up to three
// repeated-visit detection outcomes. A nil haul means the visit did not
// occur.
type DetectionHistory struct {
	PoolID string  `json:"pool_id"`
	Depth  float64 `json:"depth"`
	Hauls  [3]*int `json:"hauls"`
}

// Visits returns the number of visits actually conducted.
func (h DetectionHistory) Visits() int {
	n := 0
	for _, v := range h.Hauls {
		if v != nil {
			n++
		}
	}
	return n
}

// Detections returns the number of visits with a detection.
func (h DetectionHistory) Detections() int {
	n := 0
	for _, v := range h.Hauls {
		if v != nil && *v == 1 {
			n++
		}
	}
	return n
}

// Prediction is a predicted occupancy probability with its confidence bounds.
type Prediction struct {
	Psi   float64 `json:"psi"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ScoredSite is a candidate site with its predicted occupancy attached.
type ScoredSite struct {
	Site
	Prediction
}

// FitSummary holds the reportable parts of a fitted occupancy model.
type FitSummary struct {
	OccIntercept   float64 `json:"occ_intercept"`
	OccInterceptSE float64 `json:"occ_intercept_se"`
	OccSlope       float64 `json:"occ_slope"`
	OccSlopeSE     float64 `json:"occ_slope_se"`
	DetIntercept   float64 `json:"det_intercept"`
	DetInterceptSE float64 `json:"det_intercept_se"`
	DetectionProb  float64 `json:"detection_prob"`
	LogLikelihood  float64 `json:"log_likelihood"`
	Sites          int     `json:"sites"`
}

// Selection is the outcome of one probability-weighted draw.
type Selection struct {
	Season     string       `json:"season"`
	SampleSize int          `json:"sample_size"`
	Seed       int64        `json:"seed"`
	Candidates int          `json:"candidates"`
	Sites      []ScoredSite `json:"sites"`
}
