package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const memoryColumns = `id, kind, title, description, content, happened_at, location,
	anniversary_type, seasonal_tags, proactive_score, embedding, created_at`

type memoryRepository struct {
	db *sql.DB
}

func (r *memoryRepository) Create(ctx context.Context, mem *model.Memory) (*model.Memory, error) {
	created := mem.Copy()
	if created.ID == "" {
		created.ID = model.NewMemoryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	var happenedAt, monthDay sql.NullString
	if created.HappenedAt != nil {
		happenedAt = sql.NullString{String: created.HappenedAt.String(), Valid: true}
		monthDay = sql.NullString{String: created.HappenedAt.MonthDay().String(), Valid: true}
	}

	var tags sql.NullString
	if created.SeasonalTags != nil {
		raw, err := json.Marshal(created.SeasonalTags)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode seasonal tags")
		}
		tags = sql.NullString{String: string(raw), Valid: true}
	}

	var embedding sql.NullString
	if len(created.Embedding) > 0 {
		raw, err := json.Marshal(created.Embedding)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode embedding")
		}
		embedding = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO memories (`+memoryColumns+`, month_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(created.ID), string(created.Kind), created.Title, created.Description, created.Content,
		happenedAt, created.Where, string(created.AnniversaryType), tags, created.ProactiveScore,
		embedding, formatTime(created.CreatedAt), monthDay)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory", goerr.V("memoryID", created.ID))
	}

	for seq, pid := range created.PersonIDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memory_people (memory_id, person_id, seq) VALUES (?, ?, ?)`,
			string(created.ID), string(pid), seq); err != nil {
			return nil, goerr.Wrap(err, "failed to tag person", goerr.V("memoryID", created.ID), goerr.V("personID", pid))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit memory", goerr.V("memoryID", created.ID))
	}

	return r.Get(ctx, created.ID)
}

func (r *memoryRepository) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	memories, err := r.query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, string(id))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memoryID", id))
	}
	if len(memories) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "memory not found", goerr.V("memoryID", id))
	}
	return memories[0], nil
}

func (r *memoryRepository) GetMany(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return []*model.Memory{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}
	found, err := r.query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memories", goerr.V("count", len(ids)))
	}

	byID := make(map[model.MemoryID]*model.Memory, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	result := make([]*model.Memory, 0, len(ids))
	seen := make(map[model.MemoryID]bool, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			continue
		}
		if seen[id] {
			m = m.Copy()
		}
		seen[id] = true
		result = append(result, m)
	}
	return result, nil
}

func (r *memoryRepository) FindByDateKeys(ctx context.Context, keys []model.MonthDay) ([]*model.Memory, error) {
	if len(keys) == 0 {
		return []*model.Memory{}, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k.String()
	}
	memories, err := r.query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE month_day IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by date keys", goerr.V("keys", keys))
	}
	model.SortByRecency(memories)
	return memories, nil
}

func (r *memoryRepository) FindByScoreThreshold(ctx context.Context, minScore float64) ([]*model.Memory, error) {
	memories, err := r.query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE proactive_score >= ?`, minScore)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by score", goerr.V("minScore", minScore))
	}
	model.SortByRecency(memories)
	return memories, nil
}

func (r *memoryRepository) FindEmbeddings(ctx context.Context) ([]*model.MemoryEmbedding, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, embedding FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query embeddings")
	}
	defer rows.Close()

	result := make([]*model.MemoryEmbedding, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, goerr.Wrap(err, "failed to scan embedding")
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("memoryID", id))
		}
		if len(vec) == 0 {
			continue
		}
		result = append(result, &model.MemoryEmbedding{MemoryID: model.MemoryID(id), Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate embeddings")
	}
	return result, nil
}

func (r *memoryRepository) FindByPersonIDs(ctx context.Context, personIDs []model.PersonID) ([]*model.Memory, error) {
	if len(personIDs) == 0 {
		return []*model.Memory{}, nil
	}

	args := make([]any, len(personIDs))
	for i, id := range personIDs {
		args[i] = string(id)
	}
	memories, err := r.query(ctx, `SELECT `+memoryColumns+` FROM memories
		WHERE id IN (SELECT memory_id FROM memory_people WHERE person_id IN (`+placeholders(len(personIDs))+`))`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by people", goerr.V("personIDs", personIDs))
	}
	model.SortByRecency(memories)
	return memories, nil
}

// query runs a memory select and hydrates people for every row
func (r *memoryRepository) query(ctx context.Context, q string, args ...any) ([]*model.Memory, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	memories := make([]*model.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// release the connection before hydrating
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := r.hydrate(ctx, memories); err != nil {
		return nil, err
	}
	return memories, nil
}

func (r *memoryRepository) hydrate(ctx context.Context, memories []*model.Memory) error {
	if len(memories) == 0 {
		return nil
	}

	byID := make(map[model.MemoryID]*model.Memory, len(memories))
	args := make([]any, len(memories))
	for i, m := range memories {
		byID[m.ID] = m
		m.People = []*model.Person{}
		args[i] = string(m.ID)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT mp.memory_id, p.id, p.name, p.relationship, p.created_at
		FROM memory_people mp JOIN people p ON p.id = mp.person_id
		WHERE mp.memory_id IN (`+placeholders(len(args))+`)
		ORDER BY mp.memory_id, mp.seq`, args...)
	if err != nil {
		return goerr.Wrap(err, "failed to query memory people")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			memoryID  string
			personID  string
			p         model.Person
			createdAt string
		)
		if err := rows.Scan(&memoryID, &personID, &p.Name, &p.Relationship, &createdAt); err != nil {
			return goerr.Wrap(err, "failed to scan memory person")
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return err
		}
		p.ID = model.PersonID(personID)
		p.CreatedAt = t
		if m, ok := byID[model.MemoryID(memoryID)]; ok {
			m.People = append(m.People, &p)
		}
	}
	return rows.Err()
}

func scanMemory(s scanner) (*model.Memory, error) {
	var (
		m          model.Memory
		id, kind   string
		happenedAt sql.NullString
		anniv      string
		tags       sql.NullString
		embedding  sql.NullString
		createdAt  string
	)
	if err := s.Scan(&id, &kind, &m.Title, &m.Description, &m.Content, &happenedAt, &m.Where,
		&anniv, &tags, &m.ProactiveScore, &embedding, &createdAt); err != nil {
		return nil, goerr.Wrap(err, "failed to scan memory")
	}

	m.ID = model.MemoryID(id)
	m.Kind = types.MemoryKind(kind)
	m.AnniversaryType = types.AnniversaryType(anniv)

	if happenedAt.Valid {
		d, err := model.ParseDate(happenedAt.String)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid happened_at", goerr.V("memoryID", id))
		}
		m.HappenedAt = &d
	}
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &m.SeasonalTags); err != nil {
			return nil, goerr.Wrap(err, "failed to decode seasonal tags", goerr.V("memoryID", id))
		}
		if m.SeasonalTags == nil {
			m.SeasonalTags = []string{}
		}
	}
	if embedding.Valid {
		if err := json.Unmarshal([]byte(embedding.String), &m.Embedding); err != nil {
			return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("memoryID", id))
		}
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = t
	return &m, nil
}
