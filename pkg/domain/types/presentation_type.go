package types

import "fmt"

// PresentationType is the response_type returned by the AI chat call
type PresentationType string

const (
	PresentationNarrative     PresentationType = "narrative"
	PresentationCinematicShow PresentationType = "cinematic_show"
)

// IsValid checks if the presentation type is valid
func (p PresentationType) IsValid() bool {
	switch p {
	case PresentationNarrative, PresentationCinematicShow:
		return true
	default:
		return false
	}
}

func (p PresentationType) String() string {
	return string(p)
}

// ParsePresentationType parses a string into a PresentationType
func ParsePresentationType(s string) (PresentationType, error) {
	p := PresentationType(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid presentation type: %s", s)
	}
	return p, nil
}
