package amqp

import (
	"encoding/json"
	"time"
)

// Change actions carried by TemplateChangeMessage.
const (
	ActionTemplateUpserted = "template.upserted"
	ActionTemplateDeleted  = "template.deleted"
	ActionMethodUpserted   = "payment_method.upserted"
	ActionMethodDeleted    = "payment_method.deleted"
	ActionSnapshotImported = "snapshot.imported"
)

// TemplateChangeMessage tells consumers that the store changed. It carries
// only the key and the store revision; consumers re-read the store.
type TemplateChangeMessage struct {
	Key       string    `json:"key"`
	Action    string    `json:"action"`
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTemplateChangeMessage(key, action string, revision int64) *TemplateChangeMessage {
	return &TemplateChangeMessage{
		Key:       key,
		Action:    action,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *TemplateChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TemplateChangeMessageFromJSON(data []byte) (*TemplateChangeMessage, error) {
	var msg TemplateChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
