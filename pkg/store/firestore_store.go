package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names, relative to FirestoreStore.Prefix
const (
	BoxesCollection       = "locations"
	ReportsCollection     = "reports"
	VolunteersCollection  = "authorizedVolunteers"
	ConfigCollection      = "config"
	SuggestionsCollection = "locationSuggestions"
	AuditCollection       = "auditLogs"
)

// FirestoreStore implements Store on Cloud Firestore
type FirestoreStore struct {
	Client *firestore.Client
	// Prefix is prepended to every collection name, e.g. "test_"
	Prefix string
}

// NewFirestoreStore wraps a Firestore client
func NewFirestoreStore(client *firestore.Client, prefix string) *FirestoreStore {
	return &FirestoreStore{Client: client, Prefix: prefix}
}

var _ Store = (*FirestoreStore)(nil)

func (s *FirestoreStore) col(name string) *firestore.CollectionRef {
	return s.Client.Collection(s.Prefix + name)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func docErr(err error) error {
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) GetVolunteer(ctx context.Context, uid string) (*models.AuthorizedVolunteer, error) {
	snap, err := s.col(VolunteersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return nil, docErr(err)
	}
	var v models.AuthorizedVolunteer
	if err := snap.DataTo(&v); err != nil {
		return nil, fmt.Errorf("decode volunteer %s: %w", uid, err)
	}
	v.UID = snap.Ref.ID
	return &v, nil
}

func (s *FirestoreStore) UpsertVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error {
	_, err := s.col(VolunteersCollection).Doc(v.UID).Set(ctx, v)
	return err
}

func (s *FirestoreStore) AddVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error {
	_, err := s.col(VolunteersCollection).Doc(v.UID).Create(ctx, v)
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	return err
}

func (s *FirestoreStore) GetConfig(ctx context.Context) (*models.SharedConfig, error) {
	snap, err := s.col(ConfigCollection).Doc(ConfigID).Get(ctx)
	if err != nil {
		return nil, docErr(err)
	}
	var c models.SharedConfig
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.ID = ConfigID
	return &c, nil
}

func (s *FirestoreStore) SetConfig(ctx context.Context, c *models.SharedConfig) error {
	c.ID = ConfigID
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := s.col(ConfigCollection).Doc(ConfigID).Set(ctx, c)
	return err
}

func (s *FirestoreStore) CreateBox(ctx context.Context, nb NewBox) error {
	if nb.Box == nil || nb.Report == nil {
		return errors.New("store: box and report are required")
	}
	if nb.Report.ID == "" {
		nb.Report.ID = uuid.NewString()
	}

	boxRef := s.col(BoxesCollection).Doc(nb.Box.BoxID)
	reportRef := s.col(ReportsCollection).Doc(nb.Report.ID)

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(boxRef); err == nil {
			return ErrAlreadyExists
		} else if !isNotFound(err) {
			return fmt.Errorf("check box %s: %w", nb.Box.BoxID, err)
		}
		var volRef *firestore.DocumentRef
		if nb.Volunteer != nil {
			// Reads precede writes in a transaction.
			ref := s.col(VolunteersCollection).Doc(nb.Volunteer.UID)
			if _, err := tx.Get(ref); isNotFound(err) {
				volRef = ref
			} else if err != nil {
				return fmt.Errorf("check volunteer %s: %w", nb.Volunteer.UID, err)
			}
		}

		// Create fails the commit if a competing writer created the box after our read.
		if err := tx.Create(boxRef, nb.Box); err != nil {
			return err
		}
		if volRef != nil {
			if err := tx.Create(volRef, nb.Volunteer); err != nil {
				return err
			}
		}
		return tx.Create(reportRef, nb.Report)
	})
	if errors.Is(err, ErrAlreadyExists) || status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	return err
}

func (s *FirestoreStore) GetBox(ctx context.Context, boxID string) (*models.Box, error) {
	snap, err := s.col(BoxesCollection).Doc(boxID).Get(ctx)
	if err != nil {
		return nil, docErr(err)
	}
	var b models.Box
	if err := snap.DataTo(&b); err != nil {
		return nil, fmt.Errorf("decode box %s: %w", boxID, err)
	}
	b.BoxID = snap.Ref.ID
	return &b, nil
}

func (s *FirestoreStore) ListBoxes(ctx context.Context) ([]models.Box, error) {
	docs, err := s.col(BoxesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	boxes := make([]models.Box, 0, len(docs))
	for _, doc := range docs {
		var b models.Box
		if err := doc.DataTo(&b); err != nil {
			return nil, fmt.Errorf("decode box %s: %w", doc.Ref.ID, err)
		}
		b.BoxID = doc.Ref.ID
		boxes = append(boxes, b)
	}
	return boxes, nil
}

func (s *FirestoreStore) SetBoxStatus(ctx context.Context, boxID, st string) error {
	_, err := s.col(BoxesCollection).Doc(boxID).Update(ctx, []firestore.Update{
		{Path: "status", Value: st},
	})
	return docErr(err)
}

func (s *FirestoreStore) AddReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.col(ReportsCollection).Doc(r.ID).Create(ctx, r)
	return err
}

func (s *FirestoreStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	snap, err := s.col(ReportsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, docErr(err)
	}
	var r models.Report
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	r.ID = snap.Ref.ID
	return &r, nil
}

func (s *FirestoreStore) ClearReport(ctx context.Context, id, clearedBy string) error {
	_, err := s.col(ReportsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.ReportCleared},
		{Path: "clearedAt", Value: time.Now()},
		{Path: "clearedBy", Value: clearedBy},
	})
	return docErr(err)
}

func (s *FirestoreStore) ListReports(ctx context.Context, boxID string) ([]models.Report, error) {
	docs, err := s.col(ReportsCollection).
		Where("boxId", "==", boxID).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	reports := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		var r models.Report
		if err := doc.DataTo(&r); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", doc.Ref.ID, err)
		}
		r.ID = doc.Ref.ID
		reports = append(reports, r)
	}
	return reports, nil
}

// suggestionFields lists exactly the fields a sync owns, for MergeAll
func suggestionFields(sg models.LocationSuggestion) map[string]interface{} {
	return map[string]interface{}{
		"label":         sg.Label,
		"address":       sg.Address,
		"city":          sg.City,
		"state":         sg.State,
		"contactName":   sg.ContactName,
		"contactEmail":  sg.ContactEmail,
		"contactPhone":  sg.ContactPhone,
		"searchLabel":   sg.SearchLabel,
		"searchAddress": sg.SearchAddress,
		"sourceRow":     sg.SourceRow,
		"syncedAt":      sg.SyncedAt,
	}
}

func (s *FirestoreStore) UpsertSuggestions(ctx context.Context, list []models.LocationSuggestion) error {
	if len(list) == 0 {
		return nil
	}
	col := s.col(SuggestionsCollection)
	bw := s.Client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(list))
	for _, sg := range list {
		job, err := bw.Set(col.Doc(sg.ID), suggestionFields(sg), firestore.MergeAll)
		if err != nil {
			bw.End()
			return fmt.Errorf("queue suggestion %s: %w", sg.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("write suggestion %s: %w", list[i].ID, err)
		}
	}
	return nil
}

func decodeSuggestions(docs []*firestore.DocumentSnapshot) ([]models.LocationSuggestion, error) {
	list := make([]models.LocationSuggestion, 0, len(docs))
	for _, doc := range docs {
		var sg models.LocationSuggestion
		if err := doc.DataTo(&sg); err != nil {
			return nil, fmt.Errorf("decode suggestion %s: %w", doc.Ref.ID, err)
		}
		sg.ID = doc.Ref.ID
		list = append(list, sg)
	}
	return list, nil
}

func (s *FirestoreStore) ListSuggestions(ctx context.Context) ([]models.LocationSuggestion, error) {
	docs, err := s.col(SuggestionsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeSuggestions(docs)
}

func (s *FirestoreStore) SearchSuggestions(ctx context.Context, field, prefix string, limit int) ([]models.LocationSuggestion, error) {
	if field != "searchLabel" && field != "searchAddress" {
		return nil, fmt.Errorf("store: unsupported search field %q", field)
	}
	docs, err := s.col(SuggestionsCollection).
		Where(field, ">=", prefix).
		Where(field, "<", prefix+prefixEnd).
		OrderBy(field, firestore.Asc).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeSuggestions(docs)
}

func (s *FirestoreStore) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.col(AuditCollection).Doc(e.ID).Create(ctx, e)
	return err
}
