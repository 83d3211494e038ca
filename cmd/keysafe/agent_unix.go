//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/keysafehq/keysafe/internal/activation"
)

// notifyActivation wires SIGUSR1 to the flush trigger, the conventional way
// for session managers or unlock hooks to poke a long-running agent.
func notifyActivation(ctx context.Context, trig *activation.Trigger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGUSR1)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				trig.Notify()
			}
		}
	}()
}
