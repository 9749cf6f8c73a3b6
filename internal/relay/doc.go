// Package relay drives the output pin that switches the lock or light.
//
// A Driver sets a raw electrical level on one pin. A Relay layers the
// board's polarity on top, so callers only ever ask for "open" or
// "closed" and never need to know whether the relay module is
// active-high or active-low.
//
// Two drivers are provided:
//   - periph: a BCM GPIO line through periph.io (linux only)
//   - memory: an in-process pin for development machines and tests
//
// Usage:
//
//	drv, err := relay.OpenDriver(cfg.Relay)
//	if err != nil {
//	    return err
//	}
//	r, err := relay.New(drv, cfg.Relay)
//	if err != nil {
//	    return err
//	}
//	defer r.Release()
//
//	r.Open()  // energise
//	r.Close() // de-energise
package relay
