//go:build !unix

package main

import (
	"context"

	"github.com/keysafehq/keysafe/internal/activation"
)

// notifyActivation is a no-op where SIGUSR1 does not exist; the agent still
// flushes on spool changes and the periodic timer.
func notifyActivation(ctx context.Context, trig *activation.Trigger) {}
