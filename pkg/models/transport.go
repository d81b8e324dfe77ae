package models

// CompareURLRequest asks for a comparison of two remotely stored images
type CompareURLRequest struct {
	OriginalURL string                 `json:"original_url" binding:"required"`
	TamperedURL string                 `json:"tampered_url" binding:"required"`
	Options     *CompareOptionsRequest `json:"options,omitempty"`
}

// CompareOptionsRequest overrides pipeline defaults for one request.
// Nil fields keep the server defaults.
type CompareOptionsRequest struct {
	// Preset names a tuning strategy applied before the explicit fields
	Preset               string `json:"preset,omitempty" form:"preset"`
	WindowSize           *int   `json:"window_size,omitempty" form:"window_size"`
	BoxThickness         *int   `json:"box_thickness,omitempty" form:"box_thickness"`
	MinRegionArea        *int   `json:"min_region_area,omitempty" form:"min_region_area"`
	PopulationStatistics bool   `json:"population_statistics,omitempty" form:"population_statistics"`
}

// ComparisonResponse represents the response from a comparison
type ComparisonResponse struct {
	ComparisonResult
	OriginalSource string `json:"original_source,omitempty"`
	TamperedSource string `json:"tampered_source,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
