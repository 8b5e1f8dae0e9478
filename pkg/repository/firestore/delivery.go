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

// deliveryDoc is stored under the trigger key so that one document exists per (kind, date)
type deliveryDoc struct {
	ID          string     `firestore:"ID"`
	TriggerKind string     `firestore:"TriggerKind"`
	TriggerDate string     `firestore:"TriggerDate"`
	MemoryIDs   []string   `firestore:"MemoryIDs"`
	DeliveredAt *time.Time `firestore:"DeliveredAt"`
	ViewedAt    *time.Time `firestore:"ViewedAt"`
	DismissedAt *time.Time `firestore:"DismissedAt"`
	CreatedAt   time.Time  `firestore:"CreatedAt"`
}

func toDeliveryDoc(r *model.DeliveryRecord) *deliveryDoc {
	doc := &deliveryDoc{
		ID:          string(r.ID),
		TriggerKind: string(r.Kind),
		TriggerDate: r.Date.String(),
		MemoryIDs:   make([]string, len(r.MemoryIDs)),
		DeliveredAt: r.DeliveredAt,
		ViewedAt:    r.ViewedAt,
		DismissedAt: r.DismissedAt,
		CreatedAt:   r.CreatedAt,
	}
	for i, id := range r.MemoryIDs {
		doc.MemoryIDs[i] = string(id)
	}
	return doc
}

func fromDeliveryDoc(d *deliveryDoc) (*model.DeliveryRecord, error) {
	date, err := model.ParseDate(d.TriggerDate)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid TriggerDate", goerr.V("deliveryID", d.ID))
	}
	rec := &model.DeliveryRecord{
		ID:          model.DeliveryID(d.ID),
		Kind:        types.TriggerKind(d.TriggerKind),
		Date:        date,
		MemoryIDs:   make([]model.MemoryID, len(d.MemoryIDs)),
		DeliveredAt: d.DeliveredAt,
		ViewedAt:    d.ViewedAt,
		DismissedAt: d.DismissedAt,
		CreatedAt:   d.CreatedAt,
	}
	for i, id := range d.MemoryIDs {
		rec.MemoryIDs[i] = model.MemoryID(id)
	}
	return rec, nil
}

func decodeDelivery(doc *firestore.DocumentSnapshot) (*model.DeliveryRecord, error) {
	var d deliveryDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal delivery", goerr.V("docID", doc.Ref.ID))
	}
	return fromDeliveryDoc(&d)
}

type deliveryRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newDeliveryRepository(client *firestore.Client) *deliveryRepository {
	return &deliveryRepository{client: client}
}

func (r *deliveryRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(CollectionName(r.collectionPrefix, DeliveriesCollection))
}

func (r *deliveryRepository) Claim(ctx context.Context, record *model.DeliveryRecord) (*model.DeliveryRecord, bool, error) {
	candidate := record.Copy()
	if candidate.ID == "" {
		candidate.ID = model.NewDeliveryID()
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection().Doc(candidate.Key().String())

	var (
		stored  *model.DeliveryRecord
		created bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// reset on retry
		stored, created = nil, false

		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				stored, created = candidate.Copy(), true
				return tx.Create(docRef, toDeliveryDoc(candidate))
			}
			return goerr.Wrap(err, "failed to get delivery")
		}

		stored, err = decodeDelivery(doc)
		return err
	})
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to claim delivery", goerr.V("key", candidate.Key().String()))
	}

	return stored, created, nil
}

func (r *deliveryRepository) Get(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error) {
	iter := r.collection().Where("ID", "==", string(id)).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "delivery not found", goerr.V("deliveryID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get delivery", goerr.V("deliveryID", id))
	}
	return decodeDelivery(doc)
}

func (r *deliveryRepository) FindByKey(ctx context.Context, key model.TriggerKey) (*model.DeliveryRecord, error) {
	doc, err := r.collection().Doc(key.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to find delivery", goerr.V("key", key.String()))
	}
	return decodeDelivery(doc)
}

func (r *deliveryRepository) List(ctx context.Context, limit int) ([]*model.DeliveryRecord, error) {
	q := r.collection().OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	records := make([]*model.DeliveryRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate deliveries")
		}
		rec, err := decodeDelivery(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *deliveryRepository) Update(ctx context.Context, id model.DeliveryID, fn func(record *model.DeliveryRecord) error) (*model.DeliveryRecord, error) {
	query := r.collection().Where("ID", "==", string(id)).Limit(1)

	var updated *model.DeliveryRecord
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(query)
		defer iter.Stop()

		doc, err := iter.Next()
		if err == iterator.Done {
			return goerr.Wrap(ErrNotFound, "delivery not found", goerr.V("deliveryID", id))
		}
		if err != nil {
			return goerr.Wrap(err, "failed to get delivery", goerr.V("deliveryID", id))
		}

		rec, err := decodeDelivery(doc)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}

		updates := []firestore.Update{
			{Path: "DeliveredAt", Value: rec.DeliveredAt},
			{Path: "ViewedAt", Value: rec.ViewedAt},
			{Path: "DismissedAt", Value: rec.DismissedAt},
		}
		if err := tx.Update(doc.Ref, updates); err != nil {
			return goerr.Wrap(err, "failed to update delivery", goerr.V("deliveryID", id))
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *deliveryRepository) DeleteCreatedBefore(ctx context.Context, t time.Time) (int, error) {
	iter := r.collection().Where("CreatedAt", "<", t).Documents(ctx)
	defer iter.Stop()

	bulkWriter := r.client.BulkWriter(ctx)
	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bulkWriter.End()
			return deleted, goerr.Wrap(err, "failed to iterate expired deliveries")
		}
		if _, err := bulkWriter.Delete(doc.Ref); err != nil {
			bulkWriter.End()
			return deleted, goerr.Wrap(err, "failed to delete delivery", goerr.V("docID", doc.Ref.ID))
		}
		deleted++
	}
	bulkWriter.End()

	return deleted, nil
}
