/*
Package resilience provides the circuit breaker guests use when dialing
their host.

# States

	Closed --[Threshold failures]-> Open --[Cooldown]-> Half-Open --[success]-> Closed
	                                  ^                     |
	                                  +------[failure]------+

While open, Allow fails fast with ErrCircuitOpen and Wait sleeps until the
cooldown ends. Half-open admits exactly one probe.

# Usage

	breaker := resilience.New(resilience.Settings{Threshold: 3, Cooldown: 5 * time.Second})
	err := breaker.Do(ctx, func(ctx context.Context) error {
		remote, err = ws.Dial(ctx, url, origin, opts)
		return err
	})
*/
package resilience
