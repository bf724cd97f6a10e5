// Package core provides small building blocks shared by the favorites store and its callers.
// This file contains option functions for decorating persisted log entries.
package core

import (
	"github.com/tfkr-ae/darelteb/domain"
)

// LogOption decorates a log entry before it is persisted.
type LogOption func(log *domain.Log) error

// LogWithContext is an option to add context values to a log entry.
// Values are merged into any context already present.
func LogWithContext(context map[string]any) LogOption {
	return func(log *domain.Log) error {
		if log.Context == nil {
			log.Context = make(map[string]any, len(context))
		}
		for k, v := range context {
			log.Context[k] = v
		}
		return nil
	}
}

// LogWithKey is an option to associate a log entry with a storage key.
func LogWithKey(key string) LogOption {
	return func(log *domain.Log) error {
		log.Key = &key
		return nil
	}
}

// LogWithError is an option to record an error message in the log context under "error".
func LogWithError(err error) LogOption {
	return func(log *domain.Log) error {
		if err == nil {
			return nil
		}
		return LogWithContext(map[string]any{"error": err.Error()})(log)
	}
}
