package amqp

import (
	"encoding/json"
	"time"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

// EventRecordsFetched is the AMQP message type of RecordsFetchedMessage.
const EventRecordsFetched = "records.fetched"

// RecordPayload is one debit as carried on the wire. Amount is a decimal
// string so no precision is lost.
type RecordPayload struct {
	Period    string `json:"period"`
	Payee     string `json:"payee"`
	Amount    string `json:"amount"`
	MessageID string `json:"message_id,omitempty"`
}

// RecordsFetchedMessage announces the records that a run added to a snapshot.
type RecordsFetchedMessage struct {
	SnapshotID string          `json:"snapshot_id"`
	Records    []RecordPayload `json:"records"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewRecordsFetchedMessage(snapshotID string, records []core.Transaction) *RecordsFetchedMessage {
	payload := make([]RecordPayload, 0, len(records))
	for _, r := range records {
		payload = append(payload, RecordPayload{
			Period:    r.Period.String(),
			Payee:     r.Payee,
			Amount:    r.Amount.String(),
			MessageID: r.MessageID,
		})
	}
	return &RecordsFetchedMessage{
		SnapshotID: snapshotID,
		Records:    payload,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordsFetchedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
