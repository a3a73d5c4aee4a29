package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
)

// TicketCreator is the slice of TicketService used to raise tickets from
// alerts.
type TicketCreator interface {
	CreateTicketAndWorkOrder(ctx context.Context, in CreateTicketInput) (model.RepairTicket, error)
}

// LockingAlertStore adds a row-locking read used while raising tickets.
type LockingAlertStore interface {
	AlertStore
	GetForUpdate(ctx context.Context, id uint64) (model.Alert, error)
}

// AlertService applies the acknowledgement workflow to threshold alerts.
type AlertService struct {
	alerts  LockingAlertStore
	tickets TicketCreator
	tx      TxRunner
}

func NewAlertService(alerts LockingAlertStore, tickets TicketCreator, tx TxRunner) *AlertService {
	return &AlertService{alerts: alerts, tickets: tickets, tx: tx}
}

// AcknowledgedBy renders the acknowledging user the way alert lists show it.
func AcknowledgedBy(u *model.User) string {
	if u == nil {
		return "System"
	}
	return u.Name + "\n" + u.UserID
}

func (s *AlertService) load(ctx context.Context, id uint64) (model.Alert, error) {
	return s.checkLoaded(s.alerts.GetByID(ctx, id))
}

func (s *AlertService) checkLoaded(a model.Alert, err error) (model.Alert, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return a, apperror.NewNotFound("Alert not found")
	}
	if err != nil {
		return a, apperror.NewInternal("failed to load alert").WithCause(err)
	}
	return a, nil
}

func (s *AlertService) save(ctx context.Context, a *model.Alert) error {
	if err := s.alerts.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewNotFound("Alert not found")
		}
		return apperror.NewInternal("failed to update alert").WithCause(err)
	}
	return nil
}

// ToggleAcknowledge flips the acknowledged flag.  Acknowledging records by;
// clearing resets acknowledgedBy to "-".
func (s *AlertService) ToggleAcknowledge(ctx context.Context, id uint64, by *model.User) (model.Alert, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return a, err
	}
	a.Acknowledged = !a.Acknowledged
	if a.Acknowledged {
		a.AcknowledgedBy = AcknowledgedBy(by)
	} else {
		a.AcknowledgedBy = "-"
	}
	return a, s.save(ctx, &a)
}

func (s *AlertService) SetComment(ctx context.Context, id uint64, comment string) (model.Alert, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return a, err
	}
	a.Comment = strings.TrimSpace(comment)
	return a, s.save(ctx, &a)
}

func (s *AlertService) SetLevel(ctx context.Context, id uint64, level model.Priority) (model.Alert, error) {
	if !level.Valid() {
		return model.Alert{}, apperror.NewValidation("validation failed", "level must be one of [Normal High Critical]")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return a, err
	}
	a.AlertLevel = level
	return a, s.save(ctx, &a)
}

// RaiseTicketInput optionally overrides the generated ticket text.
type RaiseTicketInput struct {
	IssueDescription string `json:"issueDescription"`
	Reason           string `json:"reason"`
}

// RaiseTicket opens a repair ticket for the alert's unit at the alert's
// level and stores the ticket number on the alert, acknowledging it if
// needed.  An alert raises at most one ticket; the alert row stays locked
// until the ticket is stored.  Ticket events go out only after commit.
func (s *AlertService) RaiseTicket(ctx context.Context, id uint64, in RaiseTicketInput, by *model.User) (model.Alert, model.RepairTicket, error) {
	var (
		a  model.Alert
		tk model.RepairTicket
	)
	txCtx, events := withDeferredEvents(ctx)
	err := s.tx.WithinTx(txCtx, func(ctx context.Context) error {
		var err error
		if a, err = s.checkLoaded(s.alerts.GetForUpdate(ctx, id)); err != nil {
			return err
		}
		if a.TicketNumber != "" && a.TicketNumber != "-" {
			return apperror.NewConflict(fmt.Sprintf("alert already has ticket %s", a.TicketNumber))
		}
		desc := strings.TrimSpace(in.IssueDescription)
		if desc == "" {
			desc = fmt.Sprintf("%s reached on unit %s", strings.ReplaceAll(string(a.AlertType), "_", " "), a.KaplanUnitNo)
		}
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = "Raised from threshold alert"
		}
		level := a.AlertLevel
		if !level.Valid() {
			level = model.PriorityNormal
		}
		tk, err = s.tickets.CreateTicketAndWorkOrder(ctx, CreateTicketInput{
			KaplanUnitNo:     a.KaplanUnitNo,
			IssueDescription: desc,
			Reason:           reason,
			Priority:         level,
		})
		if err != nil {
			return err
		}
		a.TicketNumber = tk.TicketNumber
		if !a.Acknowledged {
			a.Acknowledged, a.AcknowledgedBy = true, AcknowledgedBy(by)
		}
		return s.save(ctx, &a)
	})
	if err != nil {
		events.discard()
		if apperror.Get(err) != nil {
			return model.Alert{}, model.RepairTicket{}, err
		}
		return model.Alert{}, model.RepairTicket{}, apperror.NewInternal("failed to raise ticket").WithCause(err)
	}
	events.flush(ctx)
	return a, tk, nil
}
