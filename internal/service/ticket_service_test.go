package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
)

var day = time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)

func ticketInput(unit string) CreateTicketInput {
	return CreateTicketInput{
		KaplanUnitNo:     unit,
		IssueDescription: "hydraulic leak",
		Reason:           "found on walkaround",
		Priority:         model.PriorityHigh,
	}
}

func mustCreate(t *testing.T, f *fixture, unit string) model.RepairTicket {
	t.Helper()
	tk, err := f.svc.CreateTicketAndWorkOrder(context.Background(), ticketInput(unit))
	require.NoError(t, err)
	return tk
}

func ticketRanks(f *fixture) []int {
	var out []int
	for _, t := range f.st.tickets {
		out = append(out, t.PriorityRank)
	}
	sort.Ints(out)
	return out
}

func seq(n int) []int {
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, i)
	}
	return out
}

func TestFormatTicketNumber(t *testing.T) {
	tests := []struct {
		unit  string
		count int64
		want  string
	}{
		{"UNIT0099", 3, "TCKT-20250101-0099-0003"},
		{"x1", 1, "TCKT-20250101-XXX1-0001"},
		{"truck-ab12", 12, "TCKT-20250101-AB12-0012"},
		{"", 7, "TCKT-20250101-XXXX-0007"},
		{"A", 10000, "TCKT-20250101-XXXA-10000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTicketNumber(day, tt.unit, tt.count))
		})
	}
}

func TestCreateTicket_NumberUsesDailyCount(t *testing.T) {
	f := newFixture(day)

	mustCreate(t, f, "A100")
	mustCreate(t, f, "B200")
	third := mustCreate(t, f, "UNIT0099")

	assert.Equal(t, "TCKT-20250101-0099-0003", third.TicketNumber)
	assert.Equal(t, model.StatusUnderDiagnosis, third.TicketStatus)
	assert.Equal(t, 3, third.PriorityRank)
}

func TestCreateTicket_BusinessTimeZoneSetsDate(t *testing.T) {
	f := newFixture(time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC))
	chicago := time.FixedZone("CST", -6*3600)
	f.svc.loc = chicago

	tk := mustCreate(t, f, "UNIT0001")
	assert.Equal(t, "TCKT-20250101-0001-0001", tk.TicketNumber)
}

func TestCreateTicket_CountsIncreaseWithinDay(t *testing.T) {
	f := newFixture(day)
	var last string
	for i := 0; i < 12; i++ {
		tk := mustCreate(t, f, "UNIT0099")
		if last != "" {
			assert.Greater(t, tk.TicketNumber, last)
		}
		last = tk.TicketNumber
	}
	assert.Equal(t, "TCKT-20250101-0099-0012", last)
}

func TestCreateTicket_RanksStayDense(t *testing.T) {
	f := newFixture(day)
	units := []string{"X1", "X2", "X1", "X3", "X2", "X4"}
	for _, u := range units {
		mustCreate(t, f, u)
	}
	assert.Equal(t, seq(len(units)), ticketRanks(f))

	var woRanks []int
	for _, w := range f.st.workOrders {
		woRanks = append(woRanks, w.PriorityRank)
	}
	sort.Ints(woRanks)
	assert.Equal(t, seq(4), woRanks)
}

func TestCreateTicket_SameUnitSharesOneWorkOrder(t *testing.T) {
	f := newFixture(day)

	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X1")
	c := mustCreate(t, f, "Y2")

	require.Len(t, f.st.workOrders, 2)
	x1, err := f.wos.LatestForUnit(context.Background(), "X1")
	require.NoError(t, err)
	assert.Equal(t, []uint64{a.ID, b.ID}, x1.TicketIDs)
	assert.Equal(t, int64(1001), x1.WorkOrderID)
	assert.Equal(t, 1, x1.PriorityRank)
	assert.Equal(t, a.IssueDescription, x1.Description)
	assert.Equal(t, a.Priority, x1.Priority)

	y2, err := f.wos.FindByTicket(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), y2.WorkOrderID)
	assert.Equal(t, 2, y2.PriorityRank)

	assert.Equal(t, []string{
		queue.KindTicketCreated, queue.KindWorkOrderCreated,
		queue.KindTicketCreated,
		queue.KindTicketCreated, queue.KindWorkOrderCreated,
	}, f.events.kinds())
	for _, l := range f.locks.taken {
		assert.Equal(t, rankLock, l)
	}
}

func TestCreateTicket_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateTicketInput)
		detail string
	}{
		{"missing unit", func(in *CreateTicketInput) { in.KaplanUnitNo = "  " }, "kaplanUnitNo is required"},
		{"missing description", func(in *CreateTicketInput) { in.IssueDescription = "" }, "issueDescription is required"},
		{"missing reason", func(in *CreateTicketInput) { in.Reason = "" }, "reason is required"},
		{"bad priority", func(in *CreateTicketInput) { in.Priority = "Low" }, "priority must be one of [Normal High Critical]"},
		{"bad status", func(in *CreateTicketInput) { in.TicketStatus = "Done" }, "ticketStatus is not a valid ticket status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(day)
			in := ticketInput("X1")
			tt.mutate(&in)

			_, err := f.svc.CreateTicketAndWorkOrder(context.Background(), in)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
			assert.Contains(t, apperror.Get(err).Details, tt.detail)
			assert.Empty(t, f.st.tickets)
			assert.Empty(t, f.st.counters)
		})
	}
}

func TestCreateTicket_WorkOrderFailureRollsBack(t *testing.T) {
	f := newFixture(day)
	f.wos.failInsert = errors.New("disk full")

	_, err := f.svc.CreateTicketAndWorkOrder(context.Background(), ticketInput("X1"))
	require.Error(t, err)
	assert.Equal(t, apperror.TypeInternal, apperror.Get(err).Type)
	assert.Empty(t, f.st.tickets)
	assert.Empty(t, f.st.workOrders)
	assert.Empty(t, f.st.counters)
	assert.Empty(t, f.events.events)

	f.wos.failInsert = nil
	tk := mustCreate(t, f, "X1")
	assert.Equal(t, 1, tk.PriorityRank)
	assert.Equal(t, "TCKT-20250101-XXX1-0001", tk.TicketNumber)
}

func TestCreateTicket_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(day)
	f.events.fail = true

	tk, err := f.svc.CreateTicketAndWorkOrder(context.Background(), ticketInput("X1"))
	require.NoError(t, err)
	assert.NotZero(t, tk.ID)
}

func TestDeleteTicket_ClosesRankGap(t *testing.T) {
	f := newFixture(day)
	var tickets []model.RepairTicket
	for _, u := range []string{"A", "B", "C", "D", "E"} {
		tickets = append(tickets, mustCreate(t, f, u))
	}

	require.NoError(t, f.svc.DeleteTicketAndReconcile(context.Background(), tickets[1].ID))

	assert.Equal(t, seq(4), ticketRanks(f))
	remaining, err := f.svc.ListTickets(context.Background(), "")
	require.NoError(t, err)
	var order []uint64
	for _, tk := range remaining {
		order = append(order, tk.ID)
	}
	assert.Equal(t, []uint64{tickets[0].ID, tickets[2].ID, tickets[3].ID, tickets[4].ID}, order)
}

func TestDeleteTicket_SoleTicketDeletesWorkOrder(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "Y2")
	yWO, err := f.wos.FindByTicket(context.Background(), b.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTicketAndReconcile(context.Background(), a.ID))

	require.Len(t, f.st.workOrders, 1)
	_, err = f.wos.LatestForUnit(context.Background(), "X1")
	assert.Error(t, err)
	// work order ranks are left alone
	assert.Equal(t, yWO.PriorityRank, f.st.workOrders[yWO.ID].PriorityRank)
	assert.Contains(t, f.events.kinds(), queue.KindWorkOrderDeleted)
}

func TestDeleteTicket_SharedWorkOrderKeepsOthers(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X1")
	before, err := f.wos.FindByTicket(context.Background(), a.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTicketAndReconcile(context.Background(), a.ID))

	after, err := f.wos.GetByID(context.Background(), before.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{b.ID}, after.TicketIDs)
	assert.Equal(t, before.WorkOrderID, after.WorkOrderID)
	assert.Equal(t, before.PriorityRank, after.PriorityRank)
	assert.Equal(t, 1, f.st.tickets[b.ID].PriorityRank)
}

func TestDeleteTicket_NotFound(t *testing.T) {
	f := newFixture(day)
	mustCreate(t, f, "X1")

	err := f.svc.DeleteTicketAndReconcile(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, seq(1), ticketRanks(f))
}

func TestReorderTickets_Swap(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X2")
	commits := f.tx.commits

	err := f.svc.ReorderTickets(context.Background(), []model.RankUpdate{
		{ID: a.ID, PriorityRank: 2},
		{ID: b.ID, PriorityRank: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.st.tickets[a.ID].PriorityRank)
	assert.Equal(t, 1, f.st.tickets[b.ID].PriorityRank)
	assert.Equal(t, commits+1, f.tx.commits)
}

func TestReorderTickets_InvalidBatchChangesNothing(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X2")
	c := mustCreate(t, f, "X3")

	tests := []struct {
		name    string
		updates []model.RankUpdate
	}{
		{"duplicate rank", []model.RankUpdate{{ID: a.ID, PriorityRank: 1}, {ID: b.ID, PriorityRank: 1}}},
		{"duplicate id", []model.RankUpdate{{ID: a.ID, PriorityRank: 2}, {ID: a.ID, PriorityRank: 3}}},
		{"non positive", []model.RankUpdate{{ID: a.ID, PriorityRank: 0}}},
		{"missing id", []model.RankUpdate{{ID: 4242, PriorityRank: 1}}},
		{"zero id", []model.RankUpdate{{PriorityRank: 1}}},
		{"gap", []model.RankUpdate{{ID: c.ID, PriorityRank: 5}}},
		{"partial collision", []model.RankUpdate{{ID: a.ID, PriorityRank: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.ReorderTickets(context.Background(), tt.updates)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
			assert.Equal(t, 1, f.st.tickets[a.ID].PriorityRank)
			assert.Equal(t, 2, f.st.tickets[b.ID].PriorityRank)
			assert.Equal(t, 3, f.st.tickets[c.ID].PriorityRank)
		})
	}
}

func TestReorderTickets_EmptyBatchIsNoop(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	commits, locks := f.tx.commits, len(f.locks.taken)

	require.NoError(t, f.svc.ReorderTickets(context.Background(), nil))
	require.NoError(t, f.svc.ReorderWorkOrders(context.Background(), []model.RankUpdate{}))
	assert.Equal(t, 1, f.st.tickets[a.ID].PriorityRank)
	assert.Equal(t, commits, f.tx.commits)
	assert.Len(t, f.locks.taken, locks)
}

func TestReorderTickets_Rotation(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X2")
	c := mustCreate(t, f, "X3")

	require.NoError(t, f.svc.ReorderTickets(context.Background(), []model.RankUpdate{
		{ID: a.ID, PriorityRank: 3},
		{ID: b.ID, PriorityRank: 1},
		{ID: c.ID, PriorityRank: 2},
	}))
	list, err := f.svc.ListTickets(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint64{b.ID, c.ID, a.ID}, []uint64{list[0].ID, list[1].ID, list[2].ID})
}

func TestReorderWorkOrders(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X2")
	wa, _ := f.wos.FindByTicket(context.Background(), a.ID)
	wb, _ := f.wos.FindByTicket(context.Background(), b.ID)

	require.NoError(t, f.svc.ReorderWorkOrders(context.Background(), []model.RankUpdate{
		{ID: wa.ID, PriorityRank: 2},
		{ID: wb.ID, PriorityRank: 1},
	}))
	assert.Equal(t, 2, f.st.workOrders[wa.ID].PriorityRank)
	assert.Equal(t, 1, f.st.workOrders[wb.ID].PriorityRank)

	err := f.svc.ReorderWorkOrders(context.Background(), []model.RankUpdate{{ID: a.ID + 100, PriorityRank: 1}})
	assert.True(t, apperror.IsValidation(err))
}

func TestGroupTickets(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X1")
	orig, err := f.wos.FindByTicket(context.Background(), a.ID)
	require.NoError(t, err)

	wo, err := f.svc.GroupTickets(context.Background(), GroupTicketsInput{
		TicketIDs:   []uint64{b.ID},
		ServiceType: "Repair",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1002), wo.WorkOrderID)
	assert.Equal(t, 2, wo.PriorityRank)
	assert.Equal(t, []uint64{b.ID}, wo.TicketIDs)
	assert.Equal(t, model.PriorityHigh, wo.Priority)
	assert.Equal(t, "Repair", f.st.workOrders[wo.ID].ServiceType)
	assert.Equal(t, []uint64{a.ID}, f.st.workOrders[orig.ID].TicketIDs)

	// moving the last ticket out empties and removes the old work order
	merged, err := f.svc.GroupTickets(context.Background(), GroupTicketsInput{
		TicketIDs: []uint64{a.ID, b.ID, a.ID},
		Priority:  model.PriorityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{a.ID, b.ID}, merged.TicketIDs)
	assert.Equal(t, model.PriorityLow, merged.Priority)
	require.Len(t, f.st.workOrders, 1)
	assert.Equal(t, int64(1003), f.st.workOrders[merged.ID].WorkOrderID)
}

func TestGroupTickets_Rejects(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	c := mustCreate(t, f, "Y2")

	_, err := f.svc.GroupTickets(context.Background(), GroupTicketsInput{TicketIDs: []uint64{a.ID, c.ID}})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.GroupTickets(context.Background(), GroupTicketsInput{TicketIDs: []uint64{a.ID, 77}})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.GroupTickets(context.Background(), GroupTicketsInput{})
	assert.True(t, apperror.IsValidation(err))

	assert.Len(t, f.st.workOrders, 2)
}

func TestDeleteWorkOrder_KeepsTickets(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X2")
	wa, _ := f.wos.FindByTicket(context.Background(), a.ID)
	wb, _ := f.wos.FindByTicket(context.Background(), b.ID)

	require.NoError(t, f.svc.DeleteWorkOrder(context.Background(), wa.ID))
	assert.Len(t, f.st.tickets, 2)
	assert.Equal(t, 2, f.st.workOrders[wb.ID].PriorityRank)

	assert.True(t, apperror.IsNotFound(f.svc.DeleteWorkOrder(context.Background(), wa.ID)))

	// a new ticket for the unit mints a fresh work order
	mustCreate(t, f, "X1")
	latest, err := f.wos.LatestForUnit(context.Background(), "X1")
	require.NoError(t, err)
	assert.Equal(t, int64(1003), latest.WorkOrderID)
}

func TestListWorkOrders_PopulatesTickets(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	b := mustCreate(t, f, "X1")

	wos, err := f.svc.ListWorkOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, wos, 1)
	require.Len(t, wos[0].Tickets, 2)
	assert.Equal(t, a.TicketNumber, wos[0].Tickets[0].TicketNumber)
	assert.Equal(t, b.TicketNumber, wos[0].Tickets[1].TicketNumber)
}

func TestUpdateTicket(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")

	status := model.StatusBeingFixed
	got, err := f.svc.UpdateTicket(context.Background(), a.ID, UpdateTicketInput{TicketStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, status, got.TicketStatus)
	assert.Equal(t, a.PriorityRank, got.PriorityRank)

	bad := model.TicketStatus("Done")
	_, err = f.svc.UpdateTicket(context.Background(), a.ID, UpdateTicketInput{TicketStatus: &bad})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.UpdateTicket(context.Background(), 999, UpdateTicketInput{TicketStatus: &status})
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateWorkOrder(t *testing.T) {
	f := newFixture(day)
	a := mustCreate(t, f, "X1")
	wo, _ := f.wos.FindByTicket(context.Background(), a.ID)

	in, out := day, day.Add(3*time.Hour)
	cost := 420.5
	got, err := f.svc.UpdateWorkOrder(context.Background(), wo.ID, UpdateWorkOrderInput{
		AssignedTechnician: &model.Technician{Name: "Sam", TechnicianID: "M-7"},
		TimeIn:             &in,
		TimeOut:            &out,
		TotalCost:          &cost,
		BillOfMaterials:    []model.BOMItem{{PartName: "hose", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.AssignedTechnician.Name)
	assert.Equal(t, []uint64{a.ID}, got.TicketIDs)
	require.NotNil(t, got.TotalCost)
	assert.InDelta(t, cost, *got.TotalCost, 0.001)

	_, err = f.svc.UpdateWorkOrder(context.Background(), wo.ID, UpdateWorkOrderInput{TimeIn: &out, TimeOut: &in})
	assert.True(t, apperror.IsValidation(err))
}
