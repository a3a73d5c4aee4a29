package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

func newAlertFixture(t *testing.T) (*AlertService, *memAlerts, *fixture) {
	t.Helper()
	f := newFixture(day)
	alerts := newMemAlerts()
	require.NoError(t, alerts.Create(context.Background(), &model.Alert{
		KaplanUnitNo:   "UNIT0099",
		AlertType:      model.AlertMiles,
		AlertLevel:     model.PriorityCritical,
		TicketNumber:   "-",
		AcknowledgedBy: "-",
	}))
	return NewAlertService(alerts, f.svc, f.tx), alerts, f
}

func TestToggleAcknowledge(t *testing.T) {
	svc, _, _ := newAlertFixture(t)
	u := &model.User{Name: "Dana", UserID: "dana01"}

	a, err := svc.ToggleAcknowledge(context.Background(), 1, u)
	require.NoError(t, err)
	assert.True(t, a.Acknowledged)
	assert.Equal(t, "Dana\ndana01", a.AcknowledgedBy)

	a, err = svc.ToggleAcknowledge(context.Background(), 1, u)
	require.NoError(t, err)
	assert.False(t, a.Acknowledged)
	assert.Equal(t, "-", a.AcknowledgedBy)

	_, err = svc.ToggleAcknowledge(context.Background(), 9, u)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSetLevelAndComment(t *testing.T) {
	svc, alerts, _ := newAlertFixture(t)

	_, err := svc.SetLevel(context.Background(), 1, "Urgent")
	assert.True(t, apperror.IsValidation(err))

	a, err := svc.SetLevel(context.Background(), 1, model.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityNormal, a.AlertLevel)

	_, err = svc.SetComment(context.Background(), 1, "  checked tyres  ")
	require.NoError(t, err)
	assert.Equal(t, "checked tyres", alerts.byID[1].Comment)
}

func TestRaiseTicketFromAlert(t *testing.T) {
	svc, alerts, f := newAlertFixture(t)
	u := &model.User{Name: "Dana", UserID: "dana01"}

	a, tk, err := svc.RaiseTicket(context.Background(), 1, RaiseTicketInput{}, u)
	require.NoError(t, err)
	assert.Equal(t, "TCKT-20250101-0099-0001", tk.TicketNumber)
	assert.Equal(t, model.PriorityCritical, tk.Priority)
	assert.Equal(t, "Miles threshold reached on unit UNIT0099", tk.IssueDescription)
	assert.Equal(t, tk.TicketNumber, a.TicketNumber)
	assert.True(t, a.Acknowledged)
	assert.Equal(t, tk.TicketNumber, alerts.byID[1].TicketNumber)
	assert.Len(t, f.st.workOrders, 1)
	assert.Equal(t, []uint64{1}, alerts.locked)
	assert.Equal(t, []string{"ticket.created", "workorder.created"}, f.events.kinds())

	_, _, err = svc.RaiseTicket(context.Background(), 1, RaiseTicketInput{}, u)
	assert.True(t, apperror.IsConflict(err))
	assert.Len(t, f.st.tickets, 1)
}

func TestRaiseTicketRollbackPublishesNothing(t *testing.T) {
	svc, alerts, f := newAlertFixture(t)
	alerts.failUpdate = errors.New("connection reset")

	_, _, err := svc.RaiseTicket(context.Background(), 1, RaiseTicketInput{}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.TypeInternal, apperror.Get(err).Type)
	assert.Empty(t, f.st.tickets)
	assert.Empty(t, f.st.workOrders)
	assert.Empty(t, f.events.events)
	assert.Equal(t, "-", alerts.byID[1].TicketNumber)
}
