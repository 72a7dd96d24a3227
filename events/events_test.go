package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-registry/models"
)

// doneToken is an already-completed mqtt.Token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// fakeClient records publishes; other mqtt.Client methods are not used.
type fakeClient struct {
	mqtt.Client
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	return doneToken{err: f.err}
}

func TestMQTTPublisherPublishesJSON(t *testing.T) {
	client := &fakeClient{}
	pub := newMQTTPublisher(client, "registry/patients/", zerolog.Nop())

	p := &models.Patient{ID: 9, HistoryNumber: "H-9", Department: "Neuro", IsDeceased: true}
	require.NoError(t, pub.Publish(context.Background(), PatientEvent(PatientDeleted, p, 1)))

	require.Len(t, client.topics, 1)
	assert.Equal(t, "registry/patients/deleted", client.topics[0])

	var got Event
	require.NoError(t, json.Unmarshal(client.payloads[0], &got))
	assert.Equal(t, PatientDeleted, got.Type)
	assert.Equal(t, uint(9), got.PatientID)
	assert.Equal(t, uint(1), got.ActorID)
	assert.True(t, got.IsDeceased)
}

func TestEmitLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	client := &fakeClient{err: errors.New("broker down")}
	pub := newMQTTPublisher(client, "registry/patients", zerolog.Nop())

	Emit(context.Background(), pub, zerolog.New(&buf), Event{Type: PatientCreated, PatientID: 3})

	assert.Contains(t, buf.String(), "broker down")
	assert.Contains(t, buf.String(), `"patient_id":3`)
}
