package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
)

// memState is an in-memory stand-in for the MySQL tables touched by
// TicketService.  memTx snapshots it so a failed transaction leaves it
// untouched.
type memState struct {
	tickets    map[uint64]model.RepairTicket
	workOrders map[uint64]model.WorkOrder
	createdSeq map[uint64]int
	counters   map[string]int64
	nextID     uint64
	seq        int
}

func newMemState() *memState {
	return &memState{
		tickets:    map[uint64]model.RepairTicket{},
		workOrders: map[uint64]model.WorkOrder{},
		createdSeq: map[uint64]int{},
		counters:   map[string]int64{},
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	for k, v := range m.tickets {
		v.Attachments = append([]model.Attachment(nil), v.Attachments...)
		c.tickets[k] = v
	}
	for k, v := range m.workOrders {
		v.TicketIDs = append([]uint64(nil), v.TicketIDs...)
		c.workOrders[k] = v
	}
	for k, v := range m.createdSeq {
		c.createdSeq[k] = v
	}
	for k, v := range m.counters {
		c.counters[k] = v
	}
	c.nextID, c.seq = m.nextID, m.seq
	return c
}

func (m *memState) id() uint64 {
	m.nextID++
	return m.nextID
}

type memTx struct {
	st      *memState
	commits int
}

func (t *memTx) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	snap := t.st.clone()
	if err := fn(ctx); err != nil {
		*t.st = *snap
		return err
	}
	t.commits++
	return nil
}

type memLocks struct{ taken []string }

func (l *memLocks) Lock(_ context.Context, name string) error {
	l.taken = append(l.taken, name)
	return nil
}

type memCounters struct{ st *memState }

func (c memCounters) Next(_ context.Context, name string, start int64) (int64, error) {
	v, ok := c.st.counters[name]
	if !ok {
		v = start - 1
	}
	v++
	c.st.counters[name] = v
	return v, nil
}

type memTickets struct{ st *memState }

func (r memTickets) MaxRank(context.Context) (int, error) {
	max := 0
	for _, t := range r.st.tickets {
		if t.PriorityRank > max {
			max = t.PriorityRank
		}
	}
	return max, nil
}

func (r memTickets) Insert(_ context.Context, t *model.RepairTicket) error {
	for _, o := range r.st.tickets {
		if o.TicketNumber == t.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	t.ID = r.st.id()
	t.CreatedAt, t.UpdatedAt = t.Date, t.Date
	r.st.tickets[t.ID] = *t
	return nil
}

func (r memTickets) GetByID(_ context.Context, id uint64) (model.RepairTicket, error) {
	t, ok := r.st.tickets[id]
	if !ok {
		return model.RepairTicket{}, repository.ErrNotFound
	}
	return t, nil
}

func (r memTickets) GetByIDs(_ context.Context, ids []uint64) ([]model.RepairTicket, error) {
	var out []model.RepairTicket
	for _, id := range ids {
		if t, ok := r.st.tickets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTickets) List(_ context.Context, unit string) ([]model.RepairTicket, error) {
	var out []model.RepairTicket
	for _, t := range r.st.tickets {
		if unit == "" || t.KaplanUnitNo == unit {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriorityRank < out[j].PriorityRank })
	return out, nil
}

func (r memTickets) Update(_ context.Context, t *model.RepairTicket) error {
	if _, ok := r.st.tickets[t.ID]; !ok {
		return repository.ErrNotFound
	}
	r.st.tickets[t.ID] = *t
	return nil
}

// Delete mirrors the ON DELETE CASCADE on work_order_tickets.
func (r memTickets) Delete(_ context.Context, id uint64) error {
	if _, ok := r.st.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.tickets, id)
	for woID, wo := range r.st.workOrders {
		wo.TicketIDs = without(wo.TicketIDs, id)
		r.st.workOrders[woID] = wo
	}
	return nil
}

func (r memTickets) CloseGap(_ context.Context, rank int) error {
	for id, t := range r.st.tickets {
		if t.PriorityRank > rank {
			t.PriorityRank--
			r.st.tickets[id] = t
		}
	}
	return nil
}

func (r memTickets) Ranks(context.Context) (map[uint64]int, error) {
	out := map[uint64]int{}
	for id, t := range r.st.tickets {
		out[id] = t.PriorityRank
	}
	return out, nil
}

func (r memTickets) SetRank(_ context.Context, id uint64, rank int) error {
	t := r.st.tickets[id]
	t.PriorityRank = rank
	r.st.tickets[id] = t
	return nil
}

type memWorkOrders struct {
	st         *memState
	failInsert error
}

func (r *memWorkOrders) MaxRank(context.Context) (int, error) {
	max := 0
	for _, w := range r.st.workOrders {
		if w.PriorityRank > max {
			max = w.PriorityRank
		}
	}
	return max, nil
}

func (r *memWorkOrders) Insert(_ context.Context, w *model.WorkOrder) error {
	if r.failInsert != nil {
		return r.failInsert
	}
	w.ID = r.st.id()
	r.st.seq++
	r.st.createdSeq[w.ID] = r.st.seq
	w.TicketIDs = append([]uint64(nil), w.TicketIDs...)
	r.st.workOrders[w.ID] = *w
	return nil
}

func (r *memWorkOrders) GetByID(_ context.Context, id uint64) (model.WorkOrder, error) {
	w, ok := r.st.workOrders[id]
	if !ok {
		return model.WorkOrder{}, repository.ErrNotFound
	}
	return w, nil
}

func (r *memWorkOrders) List(context.Context) ([]model.WorkOrder, error) {
	var out []model.WorkOrder
	for _, w := range r.st.workOrders {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriorityRank < out[j].PriorityRank })
	return out, nil
}

func (r *memWorkOrders) LatestForUnit(_ context.Context, unit string) (model.WorkOrder, error) {
	var (
		best model.WorkOrder
		seq  = -1
	)
	for id, w := range r.st.workOrders {
		if w.KaplanUnitNo == unit && r.st.createdSeq[id] > seq {
			best, seq = w, r.st.createdSeq[id]
		}
	}
	if seq < 0 {
		return model.WorkOrder{}, repository.ErrNotFound
	}
	return best, nil
}

func (r *memWorkOrders) FindByTicket(_ context.Context, ticketID uint64) (model.WorkOrder, error) {
	for _, w := range r.st.workOrders {
		for _, id := range w.TicketIDs {
			if id == ticketID {
				return w, nil
			}
		}
	}
	return model.WorkOrder{}, repository.ErrNotFound
}

func (r *memWorkOrders) AppendTicket(_ context.Context, woID, ticketID uint64) error {
	w, ok := r.st.workOrders[woID]
	if !ok {
		return repository.ErrNotFound
	}
	w.TicketIDs = append(w.TicketIDs, ticketID)
	r.st.workOrders[woID] = w
	return nil
}

func (r *memWorkOrders) RemoveTicket(_ context.Context, woID, ticketID uint64) error {
	w, ok := r.st.workOrders[woID]
	if !ok {
		return repository.ErrNotFound
	}
	w.TicketIDs = without(w.TicketIDs, ticketID)
	r.st.workOrders[woID] = w
	return nil
}

func (r *memWorkOrders) Update(_ context.Context, w *model.WorkOrder) error {
	cur, ok := r.st.workOrders[w.ID]
	if !ok {
		return repository.ErrNotFound
	}
	w.TicketIDs = cur.TicketIDs
	r.st.workOrders[w.ID] = *w
	return nil
}

func (r *memWorkOrders) Delete(_ context.Context, id uint64) error {
	if _, ok := r.st.workOrders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.workOrders, id)
	return nil
}

func (r *memWorkOrders) Ranks(context.Context) (map[uint64]int, error) {
	out := map[uint64]int{}
	for id, w := range r.st.workOrders {
		out[id] = w.PriorityRank
	}
	return out, nil
}

func (r *memWorkOrders) SetRank(_ context.Context, id uint64, rank int) error {
	w := r.st.workOrders[id]
	w.PriorityRank = rank
	r.st.workOrders[id] = w
	return nil
}

type memEvents struct {
	events []queue.FleetEvent
	fail   bool
}

func (p *memEvents) Publish(_ context.Context, ev queue.FleetEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *memEvents) kinds() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func without(ids []uint64, drop uint64) []uint64 {
	out := ids[:0:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

type fixture struct {
	st     *memState
	tx     *memTx
	locks  *memLocks
	wos    *memWorkOrders
	events *memEvents
	svc    *TicketService
}

func newFixture(now time.Time) *fixture {
	st := newMemState()
	f := &fixture{
		st:     st,
		tx:     &memTx{st: st},
		locks:  &memLocks{},
		wos:    &memWorkOrders{st: st},
		events: &memEvents{},
	}
	f.svc = NewTicketService(TicketDeps{
		Tickets:    memTickets{st: st},
		WorkOrders: f.wos,
		Counters:   memCounters{st: st},
		Locks:      f.locks,
		Tx:         f.tx,
		Events:     f.events,
		Location:   time.UTC,
		Clock:      func() time.Time { return now },
	})
	return f
}
