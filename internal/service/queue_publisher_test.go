package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
)

type memAudit struct {
	entries []model.AuditEntry
	err     error
}

func (m *memAudit) Record(_ context.Context, e *model.AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *e)
	return nil
}

type memHub struct{ got []queue.FleetEvent }

func (h *memHub) Broadcast(ev queue.FleetEvent) { h.got = append(h.got, ev) }

func TestDirectPublisherRecordsAndBroadcasts(t *testing.T) {
	audit, hub := &memAudit{}, &memHub{}
	pub := NewDirectPublisher(NewEventRecorder(audit, hub))

	ev := queue.FleetEvent{
		Kind: queue.KindWorkOrderCreated, Entity: "WorkOrder", EntityID: 3,
		KaplanUnitNo: "X1", Reference: "1001", Description: "Work order 1001 opened for unit X1",
	}
	require.NoError(t, pub.Publish(context.Background(), ev))

	require.Len(t, audit.entries, 1)
	e := audit.entries[0]
	assert.Equal(t, queue.KindWorkOrderCreated, e.Action)
	assert.Equal(t, "WorkOrder", e.Entity)
	assert.Equal(t, "System", e.UserRole)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(e.DataSnapshot, &snap))
	assert.Equal(t, "1001", snap["reference"])
	assert.Equal(t, []queue.FleetEvent{ev}, hub.got)
}

func TestEventRecorderAuditFailure(t *testing.T) {
	audit, hub := &memAudit{err: errors.New("db down")}, &memHub{}
	err := NewEventRecorder(audit, hub).HandleEvent(context.Background(), queue.FleetEvent{Kind: "x"})
	assert.Error(t, err)
	assert.Empty(t, hub.got)
}
