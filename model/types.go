package model

// Point is a polygon vertex in display-image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is a single polygon recovered from the external workflow,
// already scaled to the display image. Polygons with fewer than three
// points are never produced.
type Detection struct {
	Class  string  `json:"class"`
	Points []Point `json:"points"`
}

// MessageResponse is the root endpoint body.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service and model status.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
