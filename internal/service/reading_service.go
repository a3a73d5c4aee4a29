package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

type ReadingStore interface {
	Create(ctx context.Context, rd *model.Reading) error
}

type AssetLookup interface {
	GetByUnit(ctx context.Context, unit string) (model.Asset, error)
	SetLatestReading(ctx context.Context, unit, summary string) error
}

type ThresholdLookup interface {
	GetBySubType(ctx context.Context, subType string) (model.MaintenanceThreshold, error)
}

type AlertStore interface {
	Create(ctx context.Context, a *model.Alert) error
	GetByID(ctx context.Context, id uint64) (model.Alert, error)
	Update(ctx context.Context, a *model.Alert) error
}

// ReadingService records meter readings and raises threshold alerts.
type ReadingService struct {
	readings   ReadingStore
	assets     AssetLookup
	thresholds ThresholdLookup
	alerts     AlertStore
	tx         TxRunner
	events     EventPublisher
	now        func() time.Time
	log        *slog.Logger
}

func NewReadingService(readings ReadingStore, assets AssetLookup, thresholds ThresholdLookup,
	alerts AlertStore, tx TxRunner, events EventPublisher) *ReadingService {
	return &ReadingService{
		readings:   readings,
		assets:     assets,
		thresholds: thresholds,
		alerts:     alerts,
		tx:         tx,
		events:     events,
		now:        time.Now,
		log:        logger.WithComponent("reading-service"),
	}
}

// RecordReadingInput is the body of POST /api/readings.
type RecordReadingInput struct {
	KaplanUnitNo string     `json:"kaplanUnitNo" validate:"required"`
	AssetClass   string     `json:"assetClass"`
	User         string     `json:"user"`
	Date         *time.Time `json:"date"`
	Odometer     *float64   `json:"odometer" validate:"omitempty,gte=0"`
	FuelUpdate   *float64   `json:"fuelUpdate" validate:"omitempty,gte=0"`
	Hours        *float64   `json:"hours" validate:"omitempty,gte=0"`
	StatusUpdate string     `json:"statusUpdate" validate:"omitempty,readingstatus"`
}

// ReadingResult is returned after a reading is stored.
type ReadingResult struct {
	Reading         model.Reading `json:"reading"`
	AlertsTriggered int           `json:"alertsTriggered"`
	Alerts          []model.Alert `json:"alerts"`
}

// RecordReading stores the reading, refreshes the asset's latest reading
// summary and creates one alert per crossed threshold.
func (s *ReadingService) RecordReading(ctx context.Context, in RecordReadingInput) (ReadingResult, error) {
	in.KaplanUnitNo = strings.TrimSpace(in.KaplanUnitNo)
	if err := utils.ValidateStruct(in); err != nil {
		return ReadingResult{}, err
	}

	var res ReadingResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		asset, err := s.assets.GetByUnit(ctx, in.KaplanUnitNo)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewValidation(fmt.Sprintf("Asset with Kaplan Unit #%s does not exist.", in.KaplanUnitNo))
		}
		if err != nil {
			return fmt.Errorf("load asset: %w", err)
		}

		rd := model.Reading{
			AssetClass:   in.AssetClass,
			KaplanUnitNo: in.KaplanUnitNo,
			User:         in.User,
			Date:         s.now().UTC(),
			Odometer:     in.Odometer,
			FuelUpdate:   in.FuelUpdate,
			Hours:        in.Hours,
			StatusUpdate: in.StatusUpdate,
		}
		if rd.AssetClass == "" {
			rd.AssetClass = asset.SubAssetType
		}
		if in.Date != nil {
			rd.Date = in.Date.UTC()
		}
		if err := s.readings.Create(ctx, &rd); err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}
		if err := s.assets.SetLatestReading(ctx, asset.KaplanUnitNo, ReadingSummary(rd)); err != nil {
			return fmt.Errorf("update asset reading: %w", err)
		}

		res = ReadingResult{Reading: rd, Alerts: []model.Alert{}}
		th, err := s.thresholds.GetBySubType(ctx, asset.SubAssetType)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load threshold: %w", err)
		}
		for _, a := range EvaluateThresholds(rd, th) {
			a.AssetClass = asset.SubAssetType
			if err := s.alerts.Create(ctx, &a); err != nil {
				return fmt.Errorf("insert alert: %w", err)
			}
			res.Alerts = append(res.Alerts, a)
		}
		res.AlertsTriggered = len(res.Alerts)
		return nil
	})
	if err != nil {
		if apperror.Get(err) != nil {
			return ReadingResult{}, err
		}
		return ReadingResult{}, apperror.NewInternal("failed to record reading").WithCause(err)
	}

	for _, a := range res.Alerts {
		publishAlert(ctx, s.events, s.log, a, s.now())
	}
	return res, nil
}

// ReadingSummary renders the "X mi / Y hr" text stored on the asset.
func ReadingSummary(rd model.Reading) string {
	return fmt.Sprintf("%s mi / %s hr", fmtNum(rd.Odometer), fmtNum(rd.Hours))
}

func fmtNum(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

var leadingNumber = regexp.MustCompile(`[\d.]+`)

// ThresholdNumber extracts the first number from free text such as
// "30 Hr." or "6 months".  ok is false when there is none.
func ThresholdNumber(s string) (float64, bool) {
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

// EvaluateThresholds returns the alerts a reading raises against th.
// Engine hours give a Normal alert, miles a High one and fuel burn per hour
// a Critical one.  A threshold or reading value that is unset is skipped.
func EvaluateThresholds(rd model.Reading, th model.MaintenanceThreshold) []model.Alert {
	var out []model.Alert
	add := func(t model.AlertType, level model.Priority) {
		out = append(out, model.Alert{
			KaplanUnitNo:   rd.KaplanUnitNo,
			AssetClass:     th.SubAssetType,
			AlertType:      t,
			TicketNumber:   "-",
			AcknowledgedBy: "-",
			AlertLevel:     level,
		})
	}
	if limit, ok := ThresholdNumber(th.EngineThreshold); ok && rd.Hours != nil && *rd.Hours >= limit {
		add(model.AlertEngine, model.PriorityNormal)
	}
	if th.MilesThreshold != nil && rd.Odometer != nil && float64(int64(*rd.Odometer)) >= *th.MilesThreshold {
		add(model.AlertMiles, model.PriorityHigh)
	}
	if th.GPH != nil && rd.FuelUpdate != nil {
		hours := 1.0
		if rd.Hours != nil && *rd.Hours != 0 {
			hours = *rd.Hours
		}
		if *rd.FuelUpdate/hours >= *th.GPH {
			add(model.AlertGPH, model.PriorityCritical)
		}
	}
	return out
}

func publishAlert(ctx context.Context, events EventPublisher, log *slog.Logger, a model.Alert, at time.Time) {
	if events == nil {
		return
	}
	ev := queue.FleetEvent{
		Kind:         queue.KindAlertRaised,
		Entity:       "AlertThreshold",
		EntityID:     a.ID,
		KaplanUnitNo: a.KaplanUnitNo,
		Description:  fmt.Sprintf("%s alert (%s) for unit %s", a.AlertType, a.AlertLevel, a.KaplanUnitNo),
		OccurredAt:   at.UTC(),
	}
	if err := events.Publish(ctx, ev); err != nil {
		log.Warn("publish event failed", "kind", ev.Kind, "error", err)
	}
}
