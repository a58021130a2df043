package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

type ProductionStatusChanged struct {
	eventID      uuid.UUID
	productionID uuid.UUID
	from         Status
	to           Status
	occurredAt   time.Time
}

func NewProductionStatusChanged(productionID uuid.UUID, from, to Status) *ProductionStatusChanged {
	return &ProductionStatusChanged{
		eventID:      uuid.New(),
		productionID: productionID,
		from:         from,
		to:           to,
		occurredAt:   time.Now(),
	}
}

// Реализация интерфейса DomainEvent
func (e *ProductionStatusChanged) EventID() uuid.UUID     { return e.eventID }
func (e *ProductionStatusChanged) EventType() string      { return "ProductionStatusChanged" }
func (e *ProductionStatusChanged) AggregateID() uuid.UUID { return e.productionID }
func (e *ProductionStatusChanged) OccurredAt() time.Time  { return e.occurredAt }

// Геттеры для payload
func (e *ProductionStatusChanged) From() Status { return e.from }
func (e *ProductionStatusChanged) To() Status   { return e.to }

func (e *ProductionStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID      uuid.UUID `json:"event_id"`
		ProductionID uuid.UUID `json:"production_id"`
		From         Status    `json:"from"`
		To           Status    `json:"to"`
		OccurredAt   time.Time `json:"occurred_at"`
	}{
		EventID:      e.eventID,
		ProductionID: e.productionID,
		From:         e.from,
		To:           e.to,
		OccurredAt:   e.occurredAt,
	})
}

type SceneStatusChanged struct {
	eventID      uuid.UUID
	productionID uuid.UUID
	sceneID      uuid.UUID
	from         SceneStatus
	to           SceneStatus
	occurredAt   time.Time
}

func NewSceneStatusChanged(productionID, sceneID uuid.UUID, from, to SceneStatus) *SceneStatusChanged {
	return &SceneStatusChanged{
		eventID:      uuid.New(),
		productionID: productionID,
		sceneID:      sceneID,
		from:         from,
		to:           to,
		occurredAt:   time.Now(),
	}
}

func (e *SceneStatusChanged) EventID() uuid.UUID     { return e.eventID }
func (e *SceneStatusChanged) EventType() string      { return "SceneStatusChanged" }
func (e *SceneStatusChanged) AggregateID() uuid.UUID { return e.productionID }
func (e *SceneStatusChanged) OccurredAt() time.Time  { return e.occurredAt }

func (e *SceneStatusChanged) SceneID() uuid.UUID { return e.sceneID }
func (e *SceneStatusChanged) From() SceneStatus  { return e.from }
func (e *SceneStatusChanged) To() SceneStatus    { return e.to }

func (e *SceneStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID      uuid.UUID   `json:"event_id"`
		ProductionID uuid.UUID   `json:"production_id"`
		SceneID      uuid.UUID   `json:"scene_id"`
		From         SceneStatus `json:"from"`
		To           SceneStatus `json:"to"`
		OccurredAt   time.Time   `json:"occurred_at"`
	}{
		EventID:      e.eventID,
		ProductionID: e.productionID,
		SceneID:      e.sceneID,
		From:         e.from,
		To:           e.to,
		OccurredAt:   e.occurredAt,
	})
}
