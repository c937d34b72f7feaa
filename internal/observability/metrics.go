package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devfolio_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikeToggles counts like toggles by outcome ("liked" or "unliked").
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devfolio_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"result"})

	// ProjectViews counts recorded public project views.
	ProjectViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devfolio_project_views_total",
		Help: "Total number of recorded public project views",
	})

	// IdentifierAllocationRetries counts retries after a uniqueness conflict by identifier kind.
	IdentifierAllocationRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devfolio_identifier_allocation_retries_total",
		Help: "Slug and username allocations retried after a unique conflict",
	}, []string{"kind"})

	// ExternalCallFailures counts failed calls to external providers.
	ExternalCallFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devfolio_external_call_failures_total",
		Help: "Failed calls to external providers by provider",
	}, []string{"provider"})
)

const startKey = "devfolio:query_start"

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// RegisterQueryMetrics installs GORM callbacks that feed DatabaseQueryLatency
// for every create, query, update, delete and raw statement.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(startKey, time.Now()) }
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			ObserveQuery(op, table, start)
		}
	}

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.after("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
