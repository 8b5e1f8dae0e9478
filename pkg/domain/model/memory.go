package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-archive/hearth/pkg/domain/types"
)

// EmbeddingDimension is the dimension of memory embedding vectors
const EmbeddingDimension = 768

// MemoryID is a UUID-based identifier for Memory
type MemoryID string

// NewMemoryID generates a new UUID v4 MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

func (id MemoryID) String() string {
	return string(id)
}

// Memory is one archived artifact (photo, voice recording, video or note).
// Records are created by upload and enriched by asynchronous analysis;
// this engine only reads them.
type Memory struct {
	ID          MemoryID         `json:"id"`
	Kind        types.MemoryKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Content     string           `json:"content,omitempty"`
	// HappenedAt is the user-supplied "when this happened" date, nil if unknown
	HappenedAt *Date  `json:"happened_at,omitempty"`
	Where      string `json:"where,omitempty"`

	AnniversaryType types.AnniversaryType `json:"anniversary_type,omitempty"`
	// SeasonalTags is nil when analysis produced no seasonal classification
	SeasonalTags   []string  `json:"seasonal_tags,omitempty"`
	ProactiveScore float64   `json:"proactive_score"`
	Embedding      []float32 `json:"-"`

	// People are the resolved person tags
	People    []*Person `json:"people"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonIDs returns the IDs of tagged people in tag order
func (m *Memory) PersonIDs() []PersonID {
	ids := make([]PersonID, len(m.People))
	for i, p := range m.People {
		ids[i] = p.ID
	}
	return ids
}

// HasPerson reports whether the memory is tagged with id
func (m *Memory) HasPerson(id PersonID) bool {
	for _, p := range m.People {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Recency is the instant used for "newest first" ordering: the happened-at
// date when known, otherwise the creation time.
func (m *Memory) Recency() time.Time {
	if m.HappenedAt != nil {
		return m.HappenedAt.Time()
	}
	return m.CreatedAt
}

// HasSeasonalTag reports whether any seasonal tag is in keywords (case-insensitive)
func (m *Memory) HasSeasonalTag(keywords []string) bool {
	for _, tag := range m.SeasonalTags {
		for _, kw := range keywords {
			if strings.EqualFold(strings.TrimSpace(tag), kw) {
				return true
			}
		}
	}
	return false
}

// Copy returns a deep copy of the memory
func (m *Memory) Copy() *Memory {
	if m == nil {
		return nil
	}
	c := *m
	if m.HappenedAt != nil {
		d := *m.HappenedAt
		c.HappenedAt = &d
	}
	if m.SeasonalTags != nil {
		c.SeasonalTags = append([]string{}, m.SeasonalTags...)
	}
	if m.Embedding != nil {
		c.Embedding = append([]float32{}, m.Embedding...)
	}
	if m.People != nil {
		c.People = make([]*Person, len(m.People))
		for i, p := range m.People {
			pc := *p
			c.People[i] = &pc
		}
	}
	return &c
}

// MemoryIDsOf returns the IDs of memories in order
func MemoryIDsOf(memories []*Memory) []MemoryID {
	ids := make([]MemoryID, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	return ids
}

// SortByRecency orders memories newest first. Ties fall back to creation
// time and then ID so the order is deterministic.
func SortByRecency(memories []*Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return newer(memories[i], memories[j])
	})
}

// SortByScoreThenRecency orders memories by proactive score desc, then newest first
func SortByScoreThenRecency(memories []*Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].ProactiveScore != memories[j].ProactiveScore {
			return memories[i].ProactiveScore > memories[j].ProactiveScore
		}
		return newer(memories[i], memories[j])
	})
}

func newer(a, b *Memory) bool {
	ra, rb := a.Recency(), b.Recency()
	if !ra.Equal(rb) {
		return ra.After(rb)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// MemoryEmbedding is the projection returned by embedding retrieval
type MemoryEmbedding struct {
	MemoryID MemoryID
	Vector   []float32
}
