package server

import (
	"context"
	"os"
)

// WaitForTermination blocks until a signal arrives on sigs or ctx ends.
// It returns the signal, or nil when ctx ended first or sigs was closed.
func WaitForTermination(ctx context.Context, sigs <-chan os.Signal) os.Signal {
	select {
	case sig, ok := <-sigs:
		if !ok {
			return nil
		}
		return sig
	case <-ctx.Done():
		return nil
	}
}
