package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
)

func f64(v float64) *float64 { return &v }

type memReadings struct{ saved []model.Reading }

func (m *memReadings) Create(_ context.Context, rd *model.Reading) error {
	rd.ID = uint64(len(m.saved) + 1)
	m.saved = append(m.saved, *rd)
	return nil
}

type memAssets struct {
	assets  map[string]model.Asset
	summary map[string]string
}

func (m *memAssets) GetByUnit(_ context.Context, unit string) (model.Asset, error) {
	a, ok := m.assets[unit]
	if !ok {
		return model.Asset{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAssets) SetLatestReading(_ context.Context, unit, summary string) error {
	m.summary[unit] = summary
	return nil
}

type memThresholds map[string]model.MaintenanceThreshold

func (m memThresholds) GetBySubType(_ context.Context, sub string) (model.MaintenanceThreshold, error) {
	t, ok := m[sub]
	if !ok {
		return model.MaintenanceThreshold{}, repository.ErrNotFound
	}
	return t, nil
}

type memAlerts struct {
	byID       map[uint64]model.Alert
	locked     []uint64
	failUpdate error
}

func newMemAlerts() *memAlerts { return &memAlerts{byID: map[uint64]model.Alert{}} }

func (m *memAlerts) Create(_ context.Context, a *model.Alert) error {
	a.ID = uint64(len(m.byID) + 1)
	m.byID[a.ID] = *a
	return nil
}

func (m *memAlerts) GetByID(_ context.Context, id uint64) (model.Alert, error) {
	a, ok := m.byID[id]
	if !ok {
		return model.Alert{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAlerts) GetForUpdate(ctx context.Context, id uint64) (model.Alert, error) {
	m.locked = append(m.locked, id)
	return m.GetByID(ctx, id)
}

func (m *memAlerts) Update(_ context.Context, a *model.Alert) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	if _, ok := m.byID[a.ID]; !ok {
		return repository.ErrNotFound
	}
	m.byID[a.ID] = *a
	return nil
}

func TestThresholdNumber(t *testing.T) {
	for in, want := range map[string]float64{"30 Hr.": 30, "6 months": 6, "12.5h": 12.5, "every 250 hours": 250} {
		got, ok := ThresholdNumber(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ThresholdNumber("none")
	assert.False(t, ok)
}

func TestEvaluateThresholds(t *testing.T) {
	th := model.MaintenanceThreshold{
		SubAssetType:    "Paver",
		EngineThreshold: "30 Hr.",
		MilesThreshold:  f64(5000),
		GPH:             f64(4),
	}
	tests := []struct {
		name string
		rd   model.Reading
		want []model.AlertType
	}{
		{"below all", model.Reading{Hours: f64(10), Odometer: f64(100), FuelUpdate: f64(20)}, nil},
		{"engine", model.Reading{Hours: f64(30), Odometer: f64(100), FuelUpdate: f64(10)}, []model.AlertType{model.AlertEngine}},
		{"miles truncates", model.Reading{Hours: f64(1), Odometer: f64(4999.9), FuelUpdate: f64(1)}, nil},
		{"miles", model.Reading{Hours: f64(1), Odometer: f64(5000), FuelUpdate: f64(1)}, []model.AlertType{model.AlertMiles}},
		{"gph zero hours divides by one", model.Reading{Hours: f64(0), FuelUpdate: f64(4)}, []model.AlertType{model.AlertGPH}},
		{"all", model.Reading{Hours: f64(40), Odometer: f64(9000), FuelUpdate: f64(400)},
			[]model.AlertType{model.AlertEngine, model.AlertMiles, model.AlertGPH}},
		{"missing values", model.Reading{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []model.AlertType
			for _, a := range EvaluateThresholds(tt.rd, th) {
				got = append(got, a.AlertType)
				assert.Equal(t, "-", a.TicketNumber)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateThresholdsLevels(t *testing.T) {
	th := model.MaintenanceThreshold{EngineThreshold: "1", MilesThreshold: f64(1), GPH: f64(0.1)}
	alerts := EvaluateThresholds(model.Reading{Hours: f64(2), Odometer: f64(2), FuelUpdate: f64(2)}, th)
	require.Len(t, alerts, 3)
	assert.Equal(t, model.PriorityNormal, alerts[0].AlertLevel)
	assert.Equal(t, model.PriorityHigh, alerts[1].AlertLevel)
	assert.Equal(t, model.PriorityCritical, alerts[2].AlertLevel)
}

func newReadingFixture() (*ReadingService, *memAssets, *memAlerts, *memEvents) {
	assets := &memAssets{
		assets:  map[string]model.Asset{"K-7": {KaplanUnitNo: "K-7", SubAssetType: "Roller"}},
		summary: map[string]string{},
	}
	alerts := newMemAlerts()
	events := &memEvents{}
	st := newMemState()
	svc := NewReadingService(&memReadings{}, assets, memThresholds{
		"Roller": {SubAssetType: "Roller", EngineThreshold: "30 Hr.", MilesThreshold: f64(100000), GPH: f64(10)},
	}, alerts, &memTx{st: st}, events)
	return svc, assets, alerts, events
}

func TestRecordReading(t *testing.T) {
	svc, assets, alerts, events := newReadingFixture()

	res, err := svc.RecordReading(context.Background(), RecordReadingInput{
		KaplanUnitNo: "K-7",
		User:         "ops",
		Odometer:     f64(1200),
		Hours:        f64(35),
		FuelUpdate:   f64(50),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsTriggered)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, model.AlertEngine, res.Alerts[0].AlertType)
	assert.Equal(t, "Roller", res.Alerts[0].AssetClass)
	assert.Equal(t, "Roller", res.Reading.AssetClass)
	assert.Equal(t, "1200 mi / 35 hr", assets.summary["K-7"])
	assert.Len(t, alerts.byID, 1)
	assert.Equal(t, []string{queue.KindAlertRaised}, events.kinds())
}

func TestRecordReadingUnknownAsset(t *testing.T) {
	svc, _, alerts, _ := newReadingFixture()

	_, err := svc.RecordReading(context.Background(), RecordReadingInput{KaplanUnitNo: "NOPE", Hours: f64(99)})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Asset with Kaplan Unit #NOPE does not exist.")
	assert.Empty(t, alerts.byID)

	_, err = svc.RecordReading(context.Background(), RecordReadingInput{KaplanUnitNo: "K-7", StatusUpdate: "Flying"})
	assert.True(t, apperror.IsValidation(err))
}
