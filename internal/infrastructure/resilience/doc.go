/*
Package resilience provides a circuit breaker.

The trace exporter pushes every finished span to a collector. When the
collector is down each push would otherwise wait for a dial to fail; the
breaker turns a run of failures into immediate ErrCircuitOpen results until a
probe succeeds again. The breaker never retries on its own.

# Usage

	breaker := resilience.New("otlp", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	err := breaker.Execute(func() error {
		_, err := client.Export(ctx, req)
		return err
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open
*/
package resilience
