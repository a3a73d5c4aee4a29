package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
)

type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type WorkLogLister interface {
	List(ctx context.Context, f repository.WorkLogFilter) ([]model.WorkLog, error)
}

// Productivity is one mechanic's day.
type Productivity struct {
	Name          string  `json:"name"`
	Date          string  `json:"date"`
	ShiftHours    float64 `json:"shiftHours"`
	WorkedHours   float64 `json:"workedHours"`
	Productivity  float64 `json:"productivity"`
	UnitsWorkedOn int     `json:"unitsWorkedOn"`
	TicketsClosed int     `json:"ticketsClosed"`
}

// ProductivityService reports mechanic utilisation.
type ProductivityService struct {
	users UserLookup
	logs  WorkLogLister
	loc   *time.Location
}

func NewProductivityService(users UserLookup, logs WorkLogLister, loc *time.Location) *ProductivityService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProductivityService{users: users, logs: logs, loc: loc}
}

// Daily computes productivity for userID on date (YYYY-MM-DD in the
// business time zone).  Shift length comes from the time of day of the
// user's clockIn and clockOut.
func (s *ProductivityService) Daily(ctx context.Context, userID uint64, date string) (Productivity, error) {
	if userID == 0 || date == "" {
		return Productivity{}, apperror.NewValidation("userId and date are required")
	}
	day, err := time.ParseInLocation(time.DateOnly, date, s.loc)
	if err != nil {
		return Productivity{}, apperror.NewValidation("date must be YYYY-MM-DD")
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.Role != model.RoleMechanic) {
		return Productivity{}, apperror.NewNotFound("Mechanic not found or invalid role")
	}
	if err != nil {
		return Productivity{}, apperror.NewInternal("failed to load user").WithCause(err)
	}
	logs, err := s.logs.List(ctx, repository.WorkLogFilter{
		MechanicID: userID,
		From:       day,
		To:         day.AddDate(0, 0, 1),
	})
	if err != nil {
		return Productivity{}, apperror.NewInternal("failed to load work logs").WithCause(err)
	}
	return ComputeProductivity(u, day, logs, s.loc), nil
}

// ComputeProductivity is the arithmetic behind Daily.
func ComputeProductivity(u model.User, day time.Time, logs []model.WorkLog, loc *time.Location) Productivity {
	shift := 0.0
	if u.ClockIn != nil && u.ClockOut != nil {
		in, out := u.ClockIn.In(loc), u.ClockOut.In(loc)
		start := time.Date(day.Year(), day.Month(), day.Day(), in.Hour(), in.Minute(), 0, 0, loc)
		end := time.Date(day.Year(), day.Month(), day.Day(), out.Hour(), out.Minute(), 0, 0, loc)
		shift = end.Sub(start).Hours()
	}
	var worked time.Duration
	units := map[string]struct{}{}
	for _, l := range logs {
		worked += l.Duration()
		units[l.KaplanUnit] = struct{}{}
	}
	p := 0.0
	if shift > 0 {
		p = worked.Hours() / shift * 100
	}
	return Productivity{
		Name:          u.Name,
		Date:          day.Format(time.DateOnly),
		ShiftHours:    round(shift, 2),
		WorkedHours:   round(worked.Hours(), 2),
		Productivity:  round(p, 1),
		UnitsWorkedOn: len(units),
		TicketsClosed: len(logs),
	}
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
