// Package events announces registry changes to other hospital systems.
// Delivery is best effort: a broker outage never fails a registry write.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"patient-registry/models"
)

// Event types.
const (
	PatientCreated = "patient.created"
	PatientUpdated = "patient.updated"
	PatientDeleted = "patient.deleted"
)

type Event struct {
	Type          string    `json:"type"`
	PatientID     uint      `json:"patient_id"`
	HistoryNumber string    `json:"history_number"`
	Department    string    `json:"department"`
	IsDeceased    bool      `json:"is_deceased"`
	ActorID       uint      `json:"actor_id"`
	At            time.Time `json:"at"`
}

// PatientEvent describes a change to p made by actorID.
func PatientEvent(kind string, p *models.Patient, actorID uint) Event {
	return Event{
		Type:          kind,
		PatientID:     p.ID,
		HistoryNumber: p.HistoryNumber,
		Department:    p.Department,
		IsDeceased:    p.IsDeceased,
		ActorID:       actorID,
		At:            time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// Emit publishes e and logs, rather than returns, any failure.
func Emit(ctx context.Context, pub Publisher, logger zerolog.Logger, e Event) {
	if err := pub.Publish(ctx, e); err != nil {
		logger.Warn().Err(err).Str("event", e.Type).Uint("patient_id", e.PatientID).Msg("publish registry event")
	}
}
