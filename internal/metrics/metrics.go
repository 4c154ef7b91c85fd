// Package metrics registers the domain counters exported on /metrics next to the HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsSold counts committed purchases, labelled by whether a seat was reserved
	TicketsSold = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traits",
		Name:      "tickets_sold_total",
		Help:      "Tickets sold, by seat reservation.",
	}, []string{"reserved"})

	// SeatConflicts counts reservations refused because the departure was full
	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "traits",
		Name:      "seat_conflicts_total",
		Help:      "Seat reservations refused for lack of capacity.",
	})

	// Compensations counts cross-store writes that were rolled back.
	// outcome is "compensated" or "degraded".
	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traits",
		Name:      "compensations_total",
		Help:      "Partial writes undone after a later store failed.",
	}, []string{"op", "outcome"})
)

// Outcome labels
const (
	OutcomeCompensated = "compensated"
	OutcomeDegraded    = "degraded"
)

// ReservedLabel formats the reserved label value
func ReservedLabel(reserved bool) string {
	if reserved {
		return "true"
	}
	return "false"
}
