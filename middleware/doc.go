// Package middleware provides composable decorators for event bus handlers.
//
// Decorators wrap an eventbus.Handler and return a new one, so they stack
// in any order:
//
//	handle, err := bus.Subscribe("job.*", "worker",
//	    middleware.WithRetry(retry.DefaultConfig(),
//	        middleware.WithTimeout(2*time.Second, process)))
//
// WithThrottle applies a shared token-bucket limiter across every
// invocation of the wrapped handler, which smooths bursty publishers
// without dropping events.
package middleware
