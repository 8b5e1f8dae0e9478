package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestNewMemoryID(t *testing.T) {
	id1 := model.NewMemoryID()
	id2 := model.NewMemoryID()

	gt.Value(t, string(id1)).NotEqual("")
	gt.Value(t, id1).NotEqual(id2)
}

func datePtr(s string) *model.Date {
	d := model.MustParseDate(s)
	return &d
}

func TestMemory_Recency(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	withDate := &model.Memory{HappenedAt: datePtr("2010-05-01"), CreatedAt: created}
	gt.Value(t, withDate.Recency()).Equal(time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC))

	withoutDate := &model.Memory{CreatedAt: created}
	gt.Value(t, withoutDate.Recency()).Equal(created)
}

func TestSortByScoreThenRecency(t *testing.T) {
	a := &model.Memory{ID: "a", ProactiveScore: 1, HappenedAt: datePtr("2020-01-01")}
	b := &model.Memory{ID: "b", ProactiveScore: 3, HappenedAt: datePtr("2001-01-01")}
	c := &model.Memory{ID: "c", ProactiveScore: 1, HappenedAt: datePtr("2022-01-01")}

	memories := []*model.Memory{a, b, c}
	model.SortByScoreThenRecency(memories)

	gt.Value(t, model.MemoryIDsOf(memories)).Equal([]model.MemoryID{"b", "c", "a"})
}

func TestSortByRecency_TieBreaksByCreatedAtThenID(t *testing.T) {
	day := datePtr("2020-01-01")
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	memories := []*model.Memory{
		{ID: "b", HappenedAt: day, CreatedAt: t1},
		{ID: "a", HappenedAt: day, CreatedAt: t1},
		{ID: "c", HappenedAt: day, CreatedAt: t2},
	}
	model.SortByRecency(memories)

	gt.Value(t, model.MemoryIDsOf(memories)).Equal([]model.MemoryID{"c", "a", "b"})
}

func TestMemory_HasSeasonalTag(t *testing.T) {
	m := &model.Memory{SeasonalTags: []string{"Halloween ", "family"}}
	gt.Bool(t, m.HasSeasonalTag([]string{"fall", "halloween"})).True()
	gt.Bool(t, m.HasSeasonalTag([]string{"summer"})).False()

	untagged := &model.Memory{}
	gt.Bool(t, untagged.HasSeasonalTag([]string{"fall"})).False()
}

func TestMemory_Copy(t *testing.T) {
	orig := &model.Memory{
		ID:           "m1",
		HappenedAt:   datePtr("2019-06-15"),
		SeasonalTags: []string{"summer"},
		Embedding:    []float32{1, 2},
		People:       []*model.Person{{ID: "p1", Name: "Grandma"}},
	}

	c := orig.Copy()
	c.HappenedAt.Year = 2000
	c.SeasonalTags[0] = "winter"
	c.Embedding[0] = 9
	c.People[0].Name = "Changed"

	gt.Value(t, orig.HappenedAt.Year).Equal(2019)
	gt.Value(t, orig.SeasonalTags[0]).Equal("summer")
	gt.Value(t, orig.Embedding[0]).Equal(float32(1))
	gt.Value(t, orig.People[0].Name).Equal("Grandma")
	gt.Bool(t, orig.HasPerson("p1")).True()
	gt.Value(t, orig.PersonIDs()).Equal([]model.PersonID{"p1"})
}

func TestCosineSimilarity(t *testing.T) {
	almostEqual := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	t.Run("symmetric", func(t *testing.T) {
		a := []float32{0.3, -1.2, 4.5, 0}
		b := []float32{2.1, 0.4, -0.7, 1.1}
		gt.Bool(t, almostEqual(model.CosineSimilarity(a, b), model.CosineSimilarity(b, a))).True()
	})

	t.Run("self similarity is one", func(t *testing.T) {
		a := []float32{0.3, -1.2, 4.5, 0}
		gt.Bool(t, almostEqual(model.CosineSimilarity(a, a), 1)).True()
	})

	t.Run("orthogonal vectors are zero", func(t *testing.T) {
		gt.Value(t, model.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).Equal(0.0)
	})

	t.Run("zero norm is zero", func(t *testing.T) {
		gt.Value(t, model.CosineSimilarity([]float32{0, 0}, []float32{1, 1})).Equal(0.0)
	})

	t.Run("mismatched dimension is zero", func(t *testing.T) {
		gt.Value(t, model.CosineSimilarity([]float32{1}, []float32{1, 1})).Equal(0.0)
	})
}
