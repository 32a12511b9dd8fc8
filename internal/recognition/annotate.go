package recognition

import "context"

// ObjectAnnotation is one localized-object hit from the vision service. Each
// annotation corresponds to a single physical instance in the image.
type ObjectAnnotation struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// LabelAnnotation is one whole-image label from the vision service. Labels
// carry no instance information, only presence.
type LabelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Response is the normalized result of one annotate call. A zero Response
// means the service saw nothing; callers treat that as "no detections",
// distinct from a transport failure.
type Response struct {
	Objects []ObjectAnnotation
	Labels  []LabelAnnotation
}

// Empty reports whether the response carries no annotations at all.
func (r Response) Empty() bool {
	return len(r.Objects) == 0 && len(r.Labels) == 0
}

// DetectionSource records which annotation pass produced a detection.
type DetectionSource string

const (
	// SourceObject marks detections from localized-object annotations,
	// which are trustworthy for counting instances.
	SourceObject DetectionSource = "localized-object"
	// SourceLabel marks detections from whole-image labels, trustworthy
	// only for presence and therefore always capped at count 1.
	SourceLabel DetectionSource = "label"
)

// Detection is one de-duplicated recognition result for one identity from a
// single image, before it is merged into persistent state.
type Detection struct {
	Name       string          `json:"item"`
	Category   string          `json:"category"`
	Count      int             `json:"count"`
	Confidence float64         `json:"confidence"`
	Source     DetectionSource `json:"source"`
}

// Recognizer defines the interface for image annotation providers.
type Recognizer interface {
	// Annotate runs object localization and label detection on an image.
	Annotate(ctx context.Context, imageData []byte, contentType string) (Response, error)
	// Close closes the recognizer and releases resources.
	Close() error
}
