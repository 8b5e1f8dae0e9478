package usecase

import "github.com/hearth-archive/hearth/pkg/domain/model"

// SelectTop exposes the similarity cut for tests. scores[i] belongs to ids[i].
func SelectTop(ids []model.MemoryID, scores []float64, threshold float64, limit int) []model.MemoryID {
	scored := make([]scoredMemory, len(ids))
	for i := range ids {
		scored[i] = scoredMemory{id: ids[i], score: scores[i]}
	}
	return selectTop(scored, threshold, limit)
}
