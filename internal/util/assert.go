package util

import "go.uber.org/zap"

// Assert logs fatally through the global logger if the condition is false
func Assert(condition bool, msg string) {
	if !condition {
		zap.L().Fatal("assertion failed", zap.String("msg", msg))
	}
}
