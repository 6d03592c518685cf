package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	sessionsBooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "sessions_booked_total",
			Help:      "Count of sessions committed by the booking engine.",
		},
	)

	sessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "sessions_closed_total",
			Help:      "Count of sessions leaving the active ledger, by outcome.",
		},
		[]string{"outcome"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "booking_rejected_total",
			Help:      "Count of booking attempts refused, by reason.",
		},
		[]string{"reason"},
	)

	scheduleConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "schedule_conflicts_total",
			Help:      "Count of merges refused because they touched booked hours.",
		},
		[]string{"operation"},
	)

	journalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "journal_failures_total",
			Help:      "Count of committed changes that could not be persisted.",
		},
		[]string{"change"},
	)

	journalRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "journal_rejected_total",
			Help:      "Count of committed changes the store refused permanently and that were moved aside.",
		},
		[]string{"change"},
	)
	matchCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor_scheduler",
			Name:      "match_cache_lookups_total",
			Help:      "Count of tutor match cache lookups, by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			sessionsBooked,
			sessionsClosed,
			bookingRejected,
			scheduleConflicts,
			journalFailures,
			journalRejected,
			matchCacheLookups,
		)
	})
}

func IncSessionBooked() {
	sessionsBooked.Inc()
}

// IncSessionClosed counts a cancelled or completed session.
func IncSessionClosed(outcome string) {
	sessionsClosed.WithLabelValues(outcome).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncScheduleConflict(operation string) {
	scheduleConflicts.WithLabelValues(operation).Inc()
}

func IncJournalFailure(change string) {
	journalFailures.WithLabelValues(change).Inc()
}

// IncJournalRejected counts a change that will never be persisted.
func IncJournalRejected(change string) {
	journalRejected.WithLabelValues(change).Inc()
}

func IncMatchCacheLookup(result string) {
	matchCacheLookups.WithLabelValues(result).Inc()
}
