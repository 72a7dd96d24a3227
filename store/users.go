package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"patient-registry/models"
	"patient-registry/validation"
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Create(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := usernameFree(tx, u.Username, 0); err != nil {
			return err
		}
		return duplicate(tx.Create(u).Error, ErrDuplicateUsername)
	})
}

func (s *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Users) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// List returns every account, newest first.
func (s *Users) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error
	return users, err
}

// CountAdmins reports how many accounts hold the admin role.
func (s *Users) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error
	return count, err
}

// Update writes username, role and password hash of u.
func (s *Users) Update(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := usernameFree(tx, u.Username, u.ID); err != nil {
			return err
		}
		res := tx.Model(u).Select("username", "role", "password_hash").Updates(u)
		if res.Error != nil {
			return duplicate(res.Error, ErrDuplicateUsername)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes the account. Patients it created keep their data but lose
// the creator reference (created_by becomes NULL) in the same transaction.
func (s *Users) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Select("id").First(&u, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.Patient{}).Where("created_by = ?", id).Update("created_by", nil).Error; err != nil { // Keep the patients, drop the link
			return fmt.Errorf("detach patients: %w", err)
		}
		return tx.Delete(&u).Error
	})
}

// ToggleRole flips the account between admin and user and returns it.
func (s *Users) ToggleRole(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return notFound(err)
		}
		u.Role = models.ToggledRole(u.Role)             // admin <-> user
		return tx.Model(&u).Update("role", u.Role).Error // Only the role column
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func usernameFree(tx *gorm.DB, username string, excluding uint) error {
	var holders []models.User
	if err := tx.Select("id", "username").Where("username = ?", username).Find(&holders).Error; err != nil {
		return err
	}
	current := make(map[uint]string, len(holders)) // ID -> username of every holder
	for _, h := range holders {
		current[h.ID] = h.Username
	}
	if !validation.IsUnique(username, current, excluding) {
		return ErrDuplicateUsername
	}
	return nil
}
