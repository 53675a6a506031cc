package plan

import (
	"github.com/agendfy/agendfy-backend/pkg/enums"
)

// Unlimited marks a dimension with no cap.
const Unlimited = -1

// Free plan caps. Premium and trial accounts are uncapped on every
// dimension.
const (
	FreeMaxServices             = 3
	FreeMaxClients              = 15
	FreeMaxAppointmentsPerMonth = 30
)

// Limits is the resolved resource budget for an account's effective plan.
type Limits struct {
	Services             int
	Clients              int
	AppointmentsPerMonth int
	CalendarViews        []enums.CalendarView
}

// HasPremiumAccess resolves the effective entitlement from the stored
// status. A trial only grants access while both the status says trial and
// the trial flag is still up; an unknown status resolves to free.
func HasPremiumAccess(status enums.SubscriptionStatus, trialActive bool) bool {
	switch status {
	case enums.SubscriptionStatusPremium:
		return true
	case enums.SubscriptionStatusPremiumTrial:
		return trialActive
	default:
		return false
	}
}

// LimitsFor returns the resource budget for the effective plan.
func LimitsFor(hasPremium bool) Limits {
	if hasPremium {
		return Limits{
			Services:             Unlimited,
			Clients:              Unlimited,
			AppointmentsPerMonth: Unlimited,
			CalendarViews: []enums.CalendarView{
				enums.CalendarViewDay,
				enums.CalendarViewWeek,
				enums.CalendarViewMonth,
			},
		}
	}
	return Limits{
		Services:             FreeMaxServices,
		Clients:              FreeMaxClients,
		AppointmentsPerMonth: FreeMaxAppointmentsPerMonth,
		CalendarViews:        []enums.CalendarView{enums.CalendarViewDay},
	}
}

// AllowsServices reports whether n active services fit within the budget.
func (l Limits) AllowsServices(n int) bool {
	return l.Services == Unlimited || n <= l.Services
}

// AllowsClients reports whether n distinct clients fit within the budget.
func (l Limits) AllowsClients(n int) bool {
	return l.Clients == Unlimited || n <= l.Clients
}

// AllowsAppointments reports whether n appointments in the current month
// fit within the budget.
func (l Limits) AllowsAppointments(n int) bool {
	return l.AppointmentsPerMonth == Unlimited || n <= l.AppointmentsPerMonth
}

// AllowsView reports whether the calendar view is available on the plan.
func (l Limits) AllowsView(view enums.CalendarView) bool {
	for _, v := range l.CalendarViews {
		if v == view {
			return true
		}
	}
	return false
}
