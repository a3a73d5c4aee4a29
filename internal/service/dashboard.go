package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
)

type DashboardAssets interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
	GetByUnits(ctx context.Context, units []string) (map[string]model.Asset, error)
}

type DashboardTickets interface {
	CountByPriority(ctx context.Context) (map[model.Priority]int, error)
	TopRepairedUnits(ctx context.Context, limit int) ([]repository.UnitRepairCount, error)
}

type DashboardWorkOrders interface {
	ResolveHours(ctx context.Context, unit string) ([]float64, error)
}

type DashboardReadings interface {
	LatestPerUnit(ctx context.Context) ([]model.Reading, error)
	FleetAverages(ctx context.Context) (mpg, gph float64, err error)
}

type AuditLister interface {
	List(ctx context.Context, userID uint64, limit int) ([]model.AuditEntry, error)
}

// DashboardService builds the read-only dashboard views.
type DashboardService struct {
	assets     DashboardAssets
	tickets    DashboardTickets
	workOrders DashboardWorkOrders
	readings   DashboardReadings
	audit      AuditLister
	now        func() time.Time
}

func NewDashboardService(a DashboardAssets, t DashboardTickets, w DashboardWorkOrders, r DashboardReadings, au AuditLister) *DashboardService {
	return &DashboardService{assets: a, tickets: t, workOrders: w, readings: r, audit: au, now: time.Now}
}

type FleetStats struct {
	TotalFleet        int `json:"totalFleet"`
	ActiveUnits       int `json:"activeUnits"`
	OutOfServiceUnits int `json:"outOfServiceUnits"`
}

type TicketStats struct {
	TotalTickets    int `json:"totalTickets"`
	NormalTickets   int `json:"normalTickets"`
	HighTickets     int `json:"highTickets"`
	CriticalTickets int `json:"criticalTickets"`
}

type DashboardStats struct {
	FleetStats  FleetStats  `json:"fleetStats"`
	TicketStats TicketStats `json:"ticketStats"`
}

func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	byStatus, err := s.assets.CountByStatus(ctx)
	if err != nil {
		return DashboardStats{}, apperror.NewInternal("Server error while fetching dashboard stats.").WithCause(err)
	}
	byPriority, err := s.tickets.CountByPriority(ctx)
	if err != nil {
		return DashboardStats{}, apperror.NewInternal("Server error while fetching dashboard stats.").WithCause(err)
	}
	var out DashboardStats
	for _, n := range byStatus {
		out.FleetStats.TotalFleet += n
	}
	out.FleetStats.ActiveUnits = byStatus[model.AssetActive]
	out.FleetStats.OutOfServiceUnits = byStatus[model.AssetOutForService]
	for _, n := range byPriority {
		out.TicketStats.TotalTickets += n
	}
	out.TicketStats.NormalTickets = byPriority[model.PriorityNormal]
	out.TicketStats.HighTickets = byPriority[model.PriorityHigh]
	out.TicketStats.CriticalTickets = byPriority[model.PriorityCritical]
	return out, nil
}

type TopAsset struct {
	KaplanUnitNo   string    `json:"kaplanUnitNo"`
	AssetType      string    `json:"assetType"`
	SubAssetType   string    `json:"subAssetType"`
	Model          string    `json:"model"`
	TotalRepairs   int       `json:"totalRepairs"`
	LastRepair     time.Time `json:"lastRepair"`
	AvgResolveTime string    `json:"avgResolveTime"`
}

// TopAssetsByRepairs lists the five units with the most tickets.  Units no
// longer in the asset registry are left out.
func (s *DashboardService) TopAssetsByRepairs(ctx context.Context) ([]TopAsset, error) {
	fail := func(err error) ([]TopAsset, error) {
		return nil, apperror.NewInternal("Failed to get top assets by repair frequency").WithCause(err)
	}
	counts, err := s.tickets.TopRepairedUnits(ctx, 5)
	if err != nil {
		return fail(err)
	}
	units := make([]string, 0, len(counts))
	for _, c := range counts {
		units = append(units, c.KaplanUnitNo)
	}
	assets, err := s.assets.GetByUnits(ctx, units)
	if err != nil {
		return fail(err)
	}
	out := []TopAsset{}
	for _, c := range counts {
		a, ok := assets[c.KaplanUnitNo]
		if !ok {
			continue
		}
		hours, err := s.workOrders.ResolveHours(ctx, c.KaplanUnitNo)
		if err != nil {
			return fail(err)
		}
		out = append(out, TopAsset{
			KaplanUnitNo:   c.KaplanUnitNo,
			AssetType:      orNA(a.AssetType),
			SubAssetType:   orNA(a.SubAssetType),
			Model:          orNA(a.Model),
			TotalRepairs:   c.Tickets,
			LastRepair:     c.LastRepair,
			AvgResolveTime: AvgResolveTime(hours),
		})
	}
	return out, nil
}

// AvgResolveTime renders the mean of hours as "12.5 hrs", or "N/A hrs"
// when there is nothing to average.
func AvgResolveTime(hours []float64) string {
	if len(hours) == 0 {
		return "N/A hrs"
	}
	sum := 0.0
	for _, h := range hours {
		sum += h
	}
	return fmt.Sprintf("%.1f hrs", sum/float64(len(hours)))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

type FuelUnit struct {
	KaplanUnitNo string  `json:"kaplanUnitNo"`
	AssetType    string  `json:"assetType"`
	MPG          float64 `json:"mpg"`
	GPH          float64 `json:"gph"`
	AvgFleetMPG  float64 `json:"avgFleetMPG"`
	AvgFleetGPH  float64 `json:"avgFleetGPH"`
}

// FuelInefficient returns the ten units whose latest reading has the
// lowest mpg, with fleet-wide averages for comparison.
func (s *DashboardService) FuelInefficient(ctx context.Context) ([]FuelUnit, error) {
	latest, err := s.readings.LatestPerUnit(ctx)
	if err != nil {
		return nil, apperror.NewInternal("Failed to fetch fuel inefficient units").WithCause(err)
	}
	mpg, gph, err := s.readings.FleetAverages(ctx)
	if err != nil {
		return nil, apperror.NewInternal("Failed to fetch fuel inefficient units").WithCause(err)
	}
	return RankFuelEfficiency(latest, mpg, gph, 10), nil
}

// RankFuelEfficiency computes mpg and gph per reading and returns the limit
// lowest by mpg.  Readings without fuel sort first, as mpg 0.
func RankFuelEfficiency(latest []model.Reading, fleetMPG, fleetGPH float64, limit int) []FuelUnit {
	out := make([]FuelUnit, 0, len(latest))
	for _, rd := range latest {
		u := FuelUnit{
			KaplanUnitNo: rd.KaplanUnitNo,
			AssetType:    rd.AssetClass,
			AvgFleetMPG:  round(fleetMPG, 2),
			AvgFleetGPH:  round(fleetGPH, 2),
		}
		if rd.FuelUpdate != nil && *rd.FuelUpdate > 0 && rd.Odometer != nil {
			u.MPG = round(*rd.Odometer / *rd.FuelUpdate, 2)
		}
		if rd.Hours != nil && *rd.Hours > 0 && rd.FuelUpdate != nil {
			u.GPH = round(*rd.FuelUpdate / *rd.Hours, 2)
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MPG < out[j].MPG })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	TimeAgo string `json:"timeAgo"`
}

// Notifications turns the ten latest audit entries into dashboard items.
func (s *DashboardService) Notifications(ctx context.Context) ([]Notification, error) {
	entries, err := s.audit.List(ctx, 0, 10)
	if err != nil {
		return nil, apperror.NewInternal("Server Error").WithCause(err)
	}
	now := s.now()
	out := make([]Notification, 0, len(entries))
	for _, e := range entries {
		out = append(out, NotificationFor(e, now))
	}
	return out, nil
}

func NotificationFor(e model.AuditEntry, now time.Time) Notification {
	n := Notification{
		Title:   e.Action,
		Message: e.Description,
		TimeAgo: humanize.RelTime(e.Timestamp, now, "ago", "from now"),
	}
	switch {
	case e.Entity == "RepairTicket" && strings.HasPrefix(e.Action, "ticket.created"):
		n.Title = "Submitted repair ticket"
	case e.Entity == "Reading":
		n.Title = "Meter Reading"
	case e.Entity == "AlertThreshold":
		n.Title = "Threshold Alert"
	}
	return n
}
