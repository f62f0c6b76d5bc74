package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.events = append(n.events, ev)
	return n.err
}

func TestEmitFansOutToNotifiers(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	bus := &Bus{Notifiers: []Notifier{first, nil, second}}

	ev, err := bus.Emit(context.Background(), TopicSessionCreated, "cs_123", map[string]any{"total": "12.96"})
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)
	require.Equal(t, TopicSessionCreated, ev.Topic)
	require.Equal(t, "cs_123", ev.AggregateID)
	require.JSONEq(t, `{"total":"12.96"}`, string(ev.Payload))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
}

func TestEmitNotifierFailureDoesNotStopFanOut(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("boom")}
	healthy := &recordingNotifier{}
	bus := &Bus{Notifiers: []Notifier{failing, healthy}}

	_, err := bus.Emit(context.Background(), TopicOrderReconciled, "cs_456", nil)
	require.Error(t, err)
	require.Len(t, healthy.events, 1)
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{}

	_, err := bus.Emit(context.Background(), " ", "cs_1", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicHandoffIssued, "", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicHandoffIssued, "cs_1", json.RawMessage("{not json"))
	require.Error(t, err)
}

func TestEmitNilPayloadDefaultsToEmptyObject(t *testing.T) {
	bus := &Bus{}
	ev, err := bus.Emit(context.Background(), TopicHandoffIssued, "cs_1", nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(ev.Payload))
}
