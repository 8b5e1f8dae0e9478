package types

import "fmt"

// AnniversaryType is the derived anniversary classification of a memory.
// The empty value means the memory has no classification.
type AnniversaryType string

const (
	AnniversaryNone       AnniversaryType = ""
	AnniversaryWedding    AnniversaryType = "wedding"
	AnniversaryGraduation AnniversaryType = "graduation"
	AnniversaryBirthday   AnniversaryType = "birthday"
	AnniversaryWork       AnniversaryType = "work"
	AnniversaryOther      AnniversaryType = "other"
)

// IsValid reports whether the classification is one of the known values or none
func (a AnniversaryType) IsValid() bool {
	switch a {
	case AnniversaryNone,
		AnniversaryWedding,
		AnniversaryGraduation,
		AnniversaryBirthday,
		AnniversaryWork,
		AnniversaryOther:
		return true
	default:
		return false
	}
}

// IsSet reports whether the memory carries any anniversary classification
func (a AnniversaryType) IsSet() bool {
	return a != AnniversaryNone
}

// Normalize maps unknown non-empty classifications to AnniversaryOther
func (a AnniversaryType) Normalize() AnniversaryType {
	if !a.IsValid() {
		return AnniversaryOther
	}
	return a
}

func (a AnniversaryType) String() string {
	return string(a)
}

// ParseAnniversaryType parses a string into an AnniversaryType
func ParseAnniversaryType(s string) (AnniversaryType, error) {
	a := AnniversaryType(s)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid anniversary type: %s", s)
	}
	return a, nil
}
