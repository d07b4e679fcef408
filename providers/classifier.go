package providers

import "strings"

// FailureClassifier decides whether an upload error should be reported as a
// probable success. It returns the warning to attach when it does.
type FailureClassifier interface {
	Reclassify(err error) (warning string, ok bool)
}

// DefaultSchemaMarkers appear in the error when Instagram published the reel
// but answered with a media object the client cannot decode.
var DefaultSchemaMarkers = []string{"clips_metadata", "validation error"}

// SchemaMismatchClassifier matches error text against Markers. This is a
// text heuristic: any failure mentioning a marker is treated as uploaded.
type SchemaMismatchClassifier struct {
	Markers []string
}

func NewSchemaMismatchClassifier() SchemaMismatchClassifier {
	return SchemaMismatchClassifier{Markers: DefaultSchemaMarkers}
}

func (c SchemaMismatchClassifier) Reclassify(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	msg := err.Error()
	for _, m := range c.Markers {
		if strings.Contains(msg, m) {
			return "Instagram response did not match the expected schema; the video was probably uploaded", true
		}
	}
	return "", false
}
