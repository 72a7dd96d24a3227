// Package store is the registry's persistence layer over gorm. Every
// mutation runs in its own transaction so a failed uniqueness check never
// leaves a partial write behind.
package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateUsername      = errors.New("username already in use")
	ErrDuplicateHistoryNumber = errors.New("history number already in use")
)

// Store bundles the repositories sharing one connection pool.
type Store struct {
	DB       *gorm.DB
	Users    *Users
	Patients *Patients
}

func New(db *gorm.DB) *Store {
	return &Store{
		DB:       db,
		Users:    NewUsers(db),
		Patients: NewPatients(db),
	}
}

// notFound maps gorm's sentinel onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate maps a translated unique-index violation onto dup. The index is
// the last line of defence when two writers pass the uniqueness check at once.
func duplicate(err, dup error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return dup
	}
	return err
}
