package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore caps the number of values in "in" and "array-contains-any" filters
const maxDisjunction = 30

// memoryDoc is the Firestore document representation of model.Memory.
// MonthDay is denormalized from HappenedAt for date key lookups.
type memoryDoc struct {
	ID              string             `firestore:"ID"`
	Kind            string             `firestore:"Kind"`
	Title           string             `firestore:"Title"`
	Description     string             `firestore:"Description"`
	Content         string             `firestore:"Content"`
	HappenedAt      string             `firestore:"HappenedAt,omitempty"`
	MonthDay        string             `firestore:"MonthDay,omitempty"`
	Where           string             `firestore:"Where"`
	AnniversaryType string             `firestore:"AnniversaryType"`
	SeasonalTags    []string           `firestore:"SeasonalTags"`
	ProactiveScore  float64            `firestore:"ProactiveScore"`
	HasEmbedding    bool               `firestore:"HasEmbedding"`
	Embedding       firestore.Vector32 `firestore:"Embedding,omitempty"`
	PersonIDs       []string           `firestore:"PersonIDs"`
	CreatedAt       time.Time          `firestore:"CreatedAt"`
}

func toMemoryDoc(m *model.Memory) *memoryDoc {
	doc := &memoryDoc{
		ID:              string(m.ID),
		Kind:            string(m.Kind),
		Title:           m.Title,
		Description:     m.Description,
		Content:         m.Content,
		Where:           m.Where,
		AnniversaryType: string(m.AnniversaryType),
		SeasonalTags:    m.SeasonalTags,
		ProactiveScore:  m.ProactiveScore,
		PersonIDs:       make([]string, 0, len(m.People)),
		CreatedAt:       m.CreatedAt,
	}
	if m.HappenedAt != nil {
		doc.HappenedAt = m.HappenedAt.String()
		doc.MonthDay = m.HappenedAt.MonthDay().String()
	}
	if len(m.Embedding) > 0 {
		doc.HasEmbedding = true
		doc.Embedding = firestore.Vector32(m.Embedding)
	}
	for _, id := range m.PersonIDs() {
		doc.PersonIDs = append(doc.PersonIDs, string(id))
	}
	return doc
}

func fromMemoryDoc(d *memoryDoc) (*model.Memory, error) {
	m := &model.Memory{
		ID:              model.MemoryID(d.ID),
		Kind:            types.MemoryKind(d.Kind),
		Title:           d.Title,
		Description:     d.Description,
		Content:         d.Content,
		Where:           d.Where,
		AnniversaryType: types.AnniversaryType(d.AnniversaryType),
		SeasonalTags:    d.SeasonalTags,
		ProactiveScore:  d.ProactiveScore,
		CreatedAt:       d.CreatedAt,
	}
	if d.HappenedAt != "" {
		date, err := model.ParseDate(d.HappenedAt)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid HappenedAt", goerr.V("memoryID", d.ID))
		}
		m.HappenedAt = &date
	}
	if len(d.Embedding) > 0 {
		m.Embedding = []float32(d.Embedding)
	}
	return m, nil
}

type memoryRepository struct {
	client           *firestore.Client
	people           *personRepository
	collectionPrefix string
}

func newMemoryRepository(client *firestore.Client, people *personRepository) *memoryRepository {
	return &memoryRepository{client: client, people: people}
}

func (r *memoryRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(CollectionName(r.collectionPrefix, MemoriesCollection))
}

func (r *memoryRepository) Create(ctx context.Context, mem *model.Memory) (*model.Memory, error) {
	created := mem.Copy()
	if created.ID == "" {
		created.ID = model.NewMemoryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(string(created.ID)).Create(ctx, toMemoryDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory", goerr.V("memoryID", created.ID))
	}

	return r.Get(ctx, created.ID)
}

func (r *memoryRepository) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "memory not found", goerr.V("memoryID", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memoryID", id))
	}

	memories, err := r.decode(ctx, []*firestore.DocumentSnapshot{doc})
	if err != nil {
		return nil, err
	}
	return memories[0], nil
}

func (r *memoryRepository) GetMany(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return []*model.Memory{}, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.collection().Doc(string(id))
	}

	// GetAll returns snapshots in ref order, with missing documents not existing
	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memories", goerr.V("count", len(ids)))
	}
	existing := make([]*firestore.DocumentSnapshot, 0, len(docs))
	for _, doc := range docs {
		if doc.Exists() {
			existing = append(existing, doc)
		}
	}
	return r.decode(ctx, existing)
}

func (r *memoryRepository) FindByDateKeys(ctx context.Context, keys []model.MonthDay) ([]*model.Memory, error) {
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = k.String()
	}

	memories, err := r.findIn(ctx, "MonthDay", "in", values)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by date keys", goerr.V("keys", keys))
	}
	return memories, nil
}

func (r *memoryRepository) FindByScoreThreshold(ctx context.Context, minScore float64) ([]*model.Memory, error) {
	docs, err := r.collect(r.collection().Where("ProactiveScore", ">=", minScore).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by score", goerr.V("minScore", minScore))
	}
	memories, err := r.decode(ctx, docs)
	if err != nil {
		return nil, err
	}
	model.SortByRecency(memories)
	return memories, nil
}

func (r *memoryRepository) FindEmbeddings(ctx context.Context) ([]*model.MemoryEmbedding, error) {
	iter := r.collection().
		Where("HasEmbedding", "==", true).
		Select("ID", "Embedding").
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.MemoryEmbedding, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate embeddings")
		}

		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V("docID", doc.Ref.ID))
		}
		if len(d.Embedding) == 0 {
			continue
		}
		result = append(result, &model.MemoryEmbedding{
			MemoryID: model.MemoryID(d.ID),
			Vector:   []float32(d.Embedding),
		})
	}
	return result, nil
}

func (r *memoryRepository) FindByPersonIDs(ctx context.Context, personIDs []model.PersonID) ([]*model.Memory, error) {
	values := make([]string, len(personIDs))
	for i, id := range personIDs {
		values[i] = string(id)
	}

	memories, err := r.findIn(ctx, "PersonIDs", "array-contains-any", values)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by people", goerr.V("personIDs", personIDs))
	}
	return memories, nil
}

// findIn runs a disjunctive filter in chunks and merges the results without duplicates
func (r *memoryRepository) findIn(ctx context.Context, path, op string, values []string) ([]*model.Memory, error) {
	seen := make(map[string]bool)
	docs := make([]*firestore.DocumentSnapshot, 0)

	for start := 0; start < len(values); start += maxDisjunction {
		end := min(start+maxDisjunction, len(values))
		chunk, err := r.collect(r.collection().Where(path, op, values[start:end]).Documents(ctx))
		if err != nil {
			return nil, err
		}
		for _, doc := range chunk {
			if seen[doc.Ref.ID] {
				continue
			}
			seen[doc.Ref.ID] = true
			docs = append(docs, doc)
		}
	}

	memories, err := r.decode(ctx, docs)
	if err != nil {
		return nil, err
	}
	model.SortByRecency(memories)
	return memories, nil
}

func (r *memoryRepository) collect(iter *firestore.DocumentIterator) ([]*firestore.DocumentSnapshot, error) {
	defer iter.Stop()

	docs := make([]*firestore.DocumentSnapshot, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memories")
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// decode converts snapshots and resolves their person tags with a single batched read
func (r *memoryRepository) decode(ctx context.Context, docs []*firestore.DocumentSnapshot) ([]*model.Memory, error) {
	memories := make([]*model.Memory, 0, len(docs))
	personIDs := make([][]model.PersonID, 0, len(docs))
	unique := make(map[model.PersonID]struct{})

	for _, doc := range docs {
		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory", goerr.V("docID", doc.Ref.ID))
		}
		m, err := fromMemoryDoc(&d)
		if err != nil {
			return nil, err
		}

		ids := make([]model.PersonID, len(d.PersonIDs))
		for i, id := range d.PersonIDs {
			ids[i] = model.PersonID(id)
			unique[ids[i]] = struct{}{}
		}
		memories = append(memories, m)
		personIDs = append(personIDs, ids)
	}

	all := make([]model.PersonID, 0, len(unique))
	for id := range unique {
		all = append(all, id)
	}
	people, err := r.people.resolve(ctx, all)
	if err != nil {
		return nil, err
	}

	for i, m := range memories {
		m.People = make([]*model.Person, 0, len(personIDs[i]))
		for _, id := range personIDs[i] {
			if p, ok := people[id]; ok {
				copied := *p
				m.People = append(m.People, &copied)
			}
		}
	}
	return memories, nil
}
