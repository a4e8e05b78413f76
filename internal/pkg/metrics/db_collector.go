package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// poolStat is the part of *pgxpool.Stat the collector reads.
type poolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	MaxConns() int32
	EmptyAcquireCount() int64
}

// RecordDBPoolMetrics updates database pool metrics.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	recordPoolStat(pool.Stat())
}

func recordPoolStat(stat poolStat) {
	DBPoolConnections.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	DBPoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
	DBPoolEmptyAcquires.Set(float64(stat.EmptyAcquireCount()))
}
