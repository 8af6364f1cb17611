package models

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Image   string  `json:"image"`
	Domain  string  `json:"domain,omitempty"`
	Seed    *uint64 `json:"seed,omitempty"`
	Explain bool    `json:"explain,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// PredictResponse is returned by POST /predict.
// Type mirrors Category for clients that read the older field name.
type PredictResponse struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Type       string       `json:"type"`
	Category   string       `json:"category"`
	Domain     string       `json:"domain"`
	Explain    *Explanation `json:"explain,omitempty"`
}

// Explanation exposes the statistics behind a prediction.
type Explanation struct {
	Features     FeatureVector `json:"features"`
	Brightness   float64       `json:"brightness"`
	MeanColorHex string        `json:"mean_color_hex"`
	MeanColorHSL [3]float64    `json:"mean_color_hsl"`
	MatchedRule  string        `json:"matched_rule"`
	ImageFormat  string        `json:"image_format,omitempty"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
}

// DomainInfo describes a loaded rule table.
type DomainInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories"`
	Default     bool     `json:"default"`
}

// ClassificationStats is the body of GET /stats.
type ClassificationStats struct {
	Started           int64            `json:"started"`
	Completed         int64            `json:"completed"`
	Failed            int64            `json:"failed"`
	DecodeFailures    int64            `json:"decode_failures"`
	ByDomain          map[string]int64 `json:"by_domain"`
	ByCategory        map[string]int64 `json:"by_category"`
	ConfidenceMean    float64          `json:"confidence_mean"`
	ConfidenceStdDev  float64          `json:"confidence_stddev"`
	ConfidenceSamples int              `json:"confidence_samples"`
	AvgProcessingMs   float64          `json:"avg_processing_ms"`
}
