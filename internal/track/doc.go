// Package track implements the region tracking session: a set of
// independently tracked regions keyed by stable identity, relocated
// frame by frame through a pluggable tracking capability.
//
// The session owns all region and seed state. One worker goroutine runs
// the frame loop; observers are notified from a separate dispatch
// goroutine so rendering never blocks tracking. Cancellation is
// cooperative and takes effect at iteration boundaries only.
package track
