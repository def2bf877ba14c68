package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a relational database
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps an opened, migrated database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

var _ Store = (*GormStore)(nil)

var suggestionColumns = []string{
	"label", "address", "city", "state",
	"contact_name", "contact_email", "contact_phone",
	"search_label", "search_address", "source_row", "synced_at",
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) GetVolunteer(ctx context.Context, uid string) (*models.AuthorizedVolunteer, error) {
	var v models.AuthorizedVolunteer
	if err := s.DB.WithContext(ctx).Where("uid = ?", uid).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *GormStore) UpsertVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error {
	return upsertVolunteer(s.DB.WithContext(ctx), v)
}

func upsertVolunteer(db *gorm.DB, v *models.AuthorizedVolunteer) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		UpdateAll: true,
	}).Create(v).Error
}

func (s *GormStore) AddVolunteer(ctx context.Context, v *models.AuthorizedVolunteer) error {
	return addVolunteer(s.DB.WithContext(ctx), v)
}

func addVolunteer(db *gorm.DB, v *models.AuthorizedVolunteer) error {
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoNothing: true,
	}).Create(v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *GormStore) GetConfig(ctx context.Context) (*models.SharedConfig, error) {
	var c models.SharedConfig
	if err := s.DB.WithContext(ctx).Where("id = ?", ConfigID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) SetConfig(ctx context.Context, c *models.SharedConfig) error {
	c.ID = ConfigID
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	return s.DB.WithContext(ctx).Save(c).Error
}

func (s *GormStore) CreateBox(ctx context.Context, nb NewBox) error {
	if nb.Box == nil || nb.Report == nil {
		return errors.New("store: box and report are required")
	}
	if nb.Report.ID == "" {
		nb.Report.ID = uuid.NewString()
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Box{}).Where("box_id = ?", nb.Box.BoxID).Count(&count).Error; err != nil {
			return fmt.Errorf("check box %s: %w", nb.Box.BoxID, err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}

		// The primary key rejects a competing insert that landed after the check.
		if err := tx.Create(nb.Box).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("insert box %s: %w", nb.Box.BoxID, err)
		}

		if nb.Volunteer != nil {
			err := addVolunteer(tx, nb.Volunteer)
			if err != nil && !errors.Is(err, ErrAlreadyExists) {
				return fmt.Errorf("add volunteer %s: %w", nb.Volunteer.UID, err)
			}
		}

		if err := tx.Create(nb.Report).Error; err != nil {
			return fmt.Errorf("insert registration report: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetBox(ctx context.Context, boxID string) (*models.Box, error) {
	var b models.Box
	if err := s.DB.WithContext(ctx).Where("box_id = ?", boxID).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *GormStore) ListBoxes(ctx context.Context) ([]models.Box, error) {
	var boxes []models.Box
	if err := s.DB.WithContext(ctx).Order("box_id asc").Find(&boxes).Error; err != nil {
		return nil, err
	}
	return boxes, nil
}

func (s *GormStore) SetBoxStatus(ctx context.Context, boxID, status string) error {
	res := s.DB.WithContext(ctx).Model(&models.Box{}).Where("box_id = ?", boxID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AddReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return s.DB.WithContext(ctx).Create(r).Error
}

func (s *GormStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *GormStore) ClearReport(ctx context.Context, id, clearedBy string) error {
	res := s.DB.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     models.ReportCleared,
		"cleared_at": time.Now(),
		"cleared_by": clearedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListReports(ctx context.Context, boxID string) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.WithContext(ctx).Where("box_id = ?", boxID).Order("timestamp asc").Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *GormStore) UpsertSuggestions(ctx context.Context, list []models.LocationSuggestion) error {
	if len(list) == 0 {
		return nil
	}
	// Only the listed columns are overwritten; anything else on the row survives.
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(suggestionColumns),
	}).CreateInBatches(&list, 200).Error
}

func (s *GormStore) ListSuggestions(ctx context.Context) ([]models.LocationSuggestion, error) {
	var list []models.LocationSuggestion
	if err := s.DB.WithContext(ctx).Order("source_row asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *GormStore) SearchSuggestions(ctx context.Context, field, prefix string, limit int) ([]models.LocationSuggestion, error) {
	var column string
	switch field {
	case "searchLabel":
		column = "search_label"
	case "searchAddress":
		column = "search_address"
	default:
		return nil, fmt.Errorf("store: unsupported search field %q", field)
	}

	var list []models.LocationSuggestion
	err := s.DB.WithContext(ctx).
		Where(column+" >= ? AND "+column+" < ?", prefix, prefix+prefixEnd).
		Order(column + " asc").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *GormStore) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return s.DB.WithContext(ctx).Create(e).Error
}
