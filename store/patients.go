package store

import (
	"context"

	"gorm.io/gorm"

	"patient-registry/models"
	"patient-registry/validation"
)

type Patients struct {
	db *gorm.DB
}

func NewPatients(db *gorm.DB) *Patients {
	return &Patients{db: db}
}

// Page is one page of a filtered patient list.
type Page struct {
	Items   []models.Patient `json:"items"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Total   int64            `json:"total"`
	Pages   int              `json:"pages"`
	HasPrev bool             `json:"has_prev"`
	HasNext bool             `json:"has_next"`
}

func (s *Patients) Create(ctx context.Context, p *models.Patient) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := historyNumberFree(tx, p.HistoryNumber, 0); err != nil {
			return err
		}
		return duplicate(tx.Create(p).Error, ErrDuplicateHistoryNumber)
	})
}

func (s *Patients) Get(ctx context.Context, id uint) (*models.Patient, error) {
	var p models.Patient
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Update overwrites every editable column of p; updated_at is refreshed.
func (s *Patients) Update(ctx context.Context, p *models.Patient) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := historyNumberFree(tx, p.HistoryNumber, p.ID); err != nil {
			return err
		}
		res := tx.Model(p).Select("*").Omit("id", "created_by", "created_at").Updates(p)
		if res.Error != nil {
			return duplicate(res.Error, ErrDuplicateHistoryNumber)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Patients) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Patient{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns page (1-based) of the patients matching f. Pages past the
// end come back empty rather than failing.
func (s *Patients) List(ctx context.Context, f PatientFilter, page int) (*Page, error) {
	if page < 1 {
		page = 1 // Pages are 1-based
	}
	var total int64
	if err := f.where(s.db.WithContext(ctx).Model(&models.Patient{})).Count(&total).Error; err != nil {
		return nil, err
	}

	pages := int((total + PageSize - 1) / PageSize) // Round up
	items := []models.Patient{}                     // Empty, not null, in JSON
	if page <= pages { // Past the last page there is nothing to fetch, and the offset could overflow
		q := newestFirst(f.where(s.db.WithContext(ctx).Model(&models.Patient{})))
		if err := q.Offset((page - 1) * PageSize).Limit(PageSize).Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &Page{
		Items:   items,
		Page:    page,
		PerPage: PageSize,
		Total:   total,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}, nil
}

// ForExport returns every patient matching f, without paging.
func (s *Patients) ForExport(ctx context.Context, f PatientFilter) ([]models.Patient, error) {
	var items []models.Patient
	err := newestFirst(f.where(s.db.WithContext(ctx).Model(&models.Patient{}))).Find(&items).Error
	return items, err
}

// Distinct returns the known departments and doctors, sorted.
func (s *Patients) Distinct(ctx context.Context) (departments, doctors []string, err error) {
	db := s.db.WithContext(ctx).Model(&models.Patient{})
	if err = db.Distinct("department").Order("department").Pluck("department", &departments).Error; err != nil {
		return nil, nil, err
	}
	db = s.db.WithContext(ctx).Model(&models.Patient{})
	if err = db.Distinct("doctor").Order("doctor").Pluck("doctor", &doctors).Error; err != nil {
		return nil, nil, err
	}
	return departments, doctors, nil
}

// HistoryNumberExists reports whether any patient holds number.
func (s *Patients) HistoryNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Patient{}).Where("history_number = ?", number).Count(&count).Error
	return count > 0, err
}

func historyNumberFree(tx *gorm.DB, number string, excluding uint) error {
	var holders []models.Patient
	if err := tx.Select("id", "history_number").Where("history_number = ?", number).Find(&holders).Error; err != nil {
		return err
	}
	current := make(map[uint]string, len(holders)) // ID -> history number of every holder
	for _, h := range holders {
		current[h.ID] = h.HistoryNumber
	}
	if !validation.IsUnique(number, current, excluding) {
		return ErrDuplicateHistoryNumber
	}
	return nil
}
