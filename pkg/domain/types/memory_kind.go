package types

import "fmt"

// MemoryKind is the media type of an archived artifact
type MemoryKind string

const (
	MemoryKindPhoto MemoryKind = "photo"
	MemoryKindVoice MemoryKind = "voice"
	MemoryKindVideo MemoryKind = "video"
	MemoryKindText  MemoryKind = "text"
)

// IsValid checks if the memory kind is valid
func (k MemoryKind) IsValid() bool {
	switch k {
	case MemoryKindPhoto,
		MemoryKindVoice,
		MemoryKindVideo,
		MemoryKindText:
		return true
	default:
		return false
	}
}

func (k MemoryKind) String() string {
	return string(k)
}

// ParseMemoryKind parses a string into a MemoryKind
func ParseMemoryKind(s string) (MemoryKind, error) {
	kind := MemoryKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid memory kind: %s", s)
	}
	return kind, nil
}
