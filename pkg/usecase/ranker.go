package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type RankerUseCase struct {
	repo      interfaces.Repository
	companion companion.Service
	cfg       *config.RankerConfig
}

func NewRankerUseCase(repo interfaces.Repository, companionSvc companion.Service, cfg *config.RankerConfig) *RankerUseCase {
	return &RankerUseCase{
		repo:      repo,
		companion: companionSvc,
		cfg:       cfg,
	}
}

// TopN is the default number of memories returned
func (uc *RankerUseCase) TopN() int {
	return uc.cfg.TopN
}

// scoredMemory is a similarity match
type scoredMemory struct {
	id    model.MemoryID
	score float64
}

// RankByQuery returns the memories most similar to text, best first.
// An unavailable embedding or a scan timeout yields an empty result, not an error.
func (uc *RankerUseCase) RankByQuery(ctx context.Context, text string) ([]*model.Memory, error) {
	return uc.rankByQuery(ctx, text, uc.cfg.TopN)
}

func (uc *RankerUseCase) rankByQuery(ctx context.Context, text string, limit int) ([]*model.Memory, error) {
	if strings.TrimSpace(text) == "" {
		return []*model.Memory{}, nil
	}
	if limit <= 0 {
		limit = uc.cfg.TopN
	}

	res := uc.companion.Embed(ctx, text)
	if !res.OK() {
		logging.From(ctx).Warn("query embedding unavailable, returning no context",
			"status", res.Status,
			"error", res.Err)
		return []*model.Memory{}, nil
	}

	embeddings, err := uc.repo.Memory().FindEmbeddings(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find embeddings")
	}

	scanCtx, cancel := context.WithTimeout(ctx, uc.cfg.ScanTimeout)
	defer cancel()

	scored, err := scoreEmbeddings(scanCtx, res.Value, embeddings)
	if err != nil {
		logging.From(ctx).Warn("similarity scan aborted, returning no context",
			"candidates", len(embeddings),
			"error", err)
		return []*model.Memory{}, nil
	}

	ids := selectTop(scored, uc.cfg.SimilarityThreshold, limit)
	if len(ids) == 0 {
		return []*model.Memory{}, nil
	}

	memories, err := uc.repo.Memory().GetMany(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get ranked memories", goerr.V("count", len(ids)))
	}
	return memories, nil
}

// scoreEmbeddings computes the cosine similarity of every candidate. It stops
// when ctx is done.
func scoreEmbeddings(ctx context.Context, query []float32, embeddings []*model.MemoryEmbedding) ([]scoredMemory, error) {
	scored := make([]scoredMemory, 0, len(embeddings))
	for i, e := range embeddings {
		// poll cancellation every 64 candidates
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, goerr.Wrap(err, "similarity scan cancelled", goerr.V("scanned", i))
			}
		}
		scored = append(scored, scoredMemory{
			id:    e.MemoryID,
			score: model.CosineSimilarity(query, e.Vector),
		})
	}
	return scored, nil
}

// selectTop keeps scores at or above threshold, best first, at most limit
func selectTop(scored []scoredMemory, threshold float64, limit int) []model.MemoryID {
	kept := make([]scoredMemory, 0, len(scored))
	for _, s := range scored {
		if s.score >= threshold {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	ids := make([]model.MemoryID, len(kept))
	for i, s := range kept {
		ids[i] = s.id
	}
	return ids
}

// RankByPeople builds a bundle of memories for a group of people:
// first memories with the whole group, then memories shared by at least two of
// them, then the most recent memory of each person still missing.
func (uc *RankerUseCase) RankByPeople(ctx context.Context, personIDs []model.PersonID, limit int) ([]*model.Memory, error) {
	ids := uniquePersonIDs(personIDs)
	if len(ids) == 0 || limit <= 0 {
		return []*model.Memory{}, nil
	}

	memories, err := uc.repo.Memory().FindByPersonIDs(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by people", goerr.V("person_ids", ids))
	}
	model.SortByRecency(memories)

	b := newBundle(limit)

	var exact, shared []*model.Memory
	coverage := make(map[model.MemoryID]int, len(memories))
	for _, m := range memories {
		n := 0
		for _, id := range ids {
			if m.HasPerson(id) {
				n++
			}
		}
		coverage[m.ID] = n
		switch {
		case n == len(ids):
			exact = append(exact, m)
		case n >= 2:
			shared = append(shared, m)
		}
	}

	// tier 1: the exact group, newest first
	for _, m := range exact {
		b.add(m)
	}

	// tier 2: broadest coverage first; the stable sort keeps recency within a count
	sort.SliceStable(shared, func(i, j int) bool {
		return coverage[shared[i].ID] > coverage[shared[j].ID]
	})
	for _, m := range shared {
		b.add(m)
	}

	// tier 3: one memory for each person not yet represented
	for _, id := range ids {
		if b.full() {
			break
		}
		if b.represents(id) {
			continue
		}
		for _, m := range memories {
			if m.HasPerson(id) && b.add(m) {
				break
			}
		}
	}

	return b.memories, nil
}

type bundle struct {
	limit    int
	memories []*model.Memory
	seen     map[model.MemoryID]struct{}
}

func newBundle(limit int) *bundle {
	return &bundle{
		limit:    limit,
		memories: make([]*model.Memory, 0, limit),
		seen:     make(map[model.MemoryID]struct{}),
	}
}

func (b *bundle) full() bool {
	return len(b.memories) >= b.limit
}

// add appends m unless the bundle is full or already holds it
func (b *bundle) add(m *model.Memory) bool {
	if b.full() {
		return false
	}
	if _, ok := b.seen[m.ID]; ok {
		return false
	}
	b.seen[m.ID] = struct{}{}
	b.memories = append(b.memories, m)
	return true
}

func (b *bundle) represents(id model.PersonID) bool {
	for _, m := range b.memories {
		if m.HasPerson(id) {
			return true
		}
	}
	return false
}

func uniquePersonIDs(ids []model.PersonID) []model.PersonID {
	seen := make(map[model.PersonID]struct{}, len(ids))
	result := make([]model.PersonID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
