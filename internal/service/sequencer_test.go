package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisSequencerNext(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	seq := NewRedisSequencer(rdb, "fleet:seq:", time.Hour)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, "ticket-day:20250101", 1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := seq.Next(ctx, "work_order_id", firstWorkOrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(firstWorkOrderID), got)
	assert.Equal(t, time.Hour, mr.TTL("fleet:seq:work_order_id"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("fleet:seq:ticket-day:20250101"))
	got, err = seq.Next(ctx, "ticket-day:20250101", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestRedisSequencerDefaultTTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	_, err := NewRedisSequencer(rdb, "p:", 0).Next(context.Background(), "n", 1)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, mr.TTL("p:n"))
}

func TestDaySequencer(t *testing.T) {
	fallback := memCounters{st: newMemState()}
	assert.Equal(t, fallback, DaySequencer(nil, fallback))

	_, rdb := setupTestRedis(t)
	assert.IsType(t, &RedisSequencer{}, DaySequencer(rdb, fallback))
}

func TestCreateTicketUsesDaySequence(t *testing.T) {
	_, rdb := setupTestRedis(t)
	f := newFixture(day)
	f.svc.daySeq = NewRedisSequencer(rdb, "fleet:seq:", time.Hour)
	require.NoError(t, rdb.Set(context.Background(), "fleet:seq:ticket-day:20250101", 2, time.Hour).Err())

	tk, err := f.svc.CreateTicketAndWorkOrder(context.Background(), CreateTicketInput{
		KaplanUnitNo:     "UNIT0099",
		IssueDescription: "Hydraulic leak",
		Reason:           "Operator report",
		Priority:         "High",
	})
	require.NoError(t, err)
	assert.Equal(t, "TCKT-20250101-0099-0003", tk.TicketNumber)
}
