package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración que viajan por el change-feed.
type IntegrationEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
