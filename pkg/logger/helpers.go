package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}

// LogComponentStart logs the start of a long-lived component
func LogComponentStart(log Logger, component string, fields map[string]interface{}) {
	log.WithField("component", component).InfoWithFields("component starting", fields)
}

// LogComponentStop logs the end of a component with its run time
func LogComponentStop(log Logger, component string, elapsed time.Duration, fields map[string]interface{}) {
	merged := map[string]interface{}{"elapsed": elapsed.Round(time.Millisecond)}
	for k, v := range fields {
		merged[k] = v
	}
	log.WithField("component", component).InfoWithFields("component stopped", merged)
}

// LogTargetResult writes the per-target line an operator follows during a run
func LogTargetResult(log Logger, target, account string, success bool, errMsg string, elapsed time.Duration) {
	fields := map[string]interface{}{
		"target":  target,
		"account": account,
		"elapsed": elapsed.Round(time.Millisecond),
	}
	if success {
		log.InfoWithFields("profile scraped", fields)
		return
	}
	fields["error"] = errMsg
	log.WarnWithFields("profile failed", fields)
}

// LogCooldown records a wait caused by account exhaustion
func LogCooldown(log Logger, wait time.Duration) {
	log.WarnWithFields("no account available, cooling down", map[string]interface{}{
		"wait":      wait,
		"resume_at": time.Now().Add(wait).Format("15:04:05"),
	})
}
