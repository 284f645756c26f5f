package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PointsChangedMessage announces one applied point delta. Consumers use
// EventID to drop redeliveries.
type PointsChangedMessage struct {
	EventID   string    `json:"event_id"`
	UserID    int64     `json:"user_id"`
	HouseID   *int64    `json:"house_id,omitempty"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPointsChangedMessage stamps a new event with a random id and the
// current time.
func NewPointsChangedMessage(userID int64, houseID *int64, delta int, reason string) *PointsChangedMessage {
	return &PointsChangedMessage{
		EventID:   uuid.NewString(),
		UserID:    userID,
		HouseID:   houseID,
		Delta:     delta,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PointsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PointsChangedMessageFromJSON decodes and checks a message body.
func PointsChangedMessageFromJSON(data []byte) (*PointsChangedMessage, error) {
	var msg PointsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", msg.EventID, err)
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("invalid user id %d", msg.UserID)
	}
	return &msg, nil
}
