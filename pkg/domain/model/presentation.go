package model

import "github.com/hearth-archive/hearth/pkg/domain/types"

// Presentation is the structured output of the AI chat call that drives playback
type Presentation struct {
	Type      types.PresentationType `json:"response_type"`
	Title     string                 `json:"title,omitempty"`
	Narrative string                 `json:"narrative,omitempty"`
	Scenes    []Scene                `json:"scenes,omitempty"`
}

// Scene is one step of a cinematic show
type Scene struct {
	MemoryID MemoryID `json:"memory_id"`
	Caption  string   `json:"caption"`
}
