package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_actions",
	Help: "Number of dispatched actions, by verdict kind and configured action",
}, []string{"kind", "action"})

var swallowedErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_swallowed_errors",
	Help: "Number of platform errors caught and skipped, by operation",
}, []string{"op"})

var verificationChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_verification_changes",
	Help: "Number of guild verification level raises and reverts",
}, []string{"direction"})

// Swallow records a platform failure that must not abort sibling processing.
func Swallow(logger *zap.Logger, op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	swallowedErrorCount.WithLabelValues(op).Inc()
	logger.Warn("platform operation failed", append(fields, zap.String("op", op), zap.Error(err))...)
}
