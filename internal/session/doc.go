// Package session implements the shared co-play session coordinator: a
// process-wide registry of at most one live session per channel, per-session
// player slot allocation, the lifecycle state machine, and input arbitration
// that merges concurrent client input into one ordered stream per session.
//
// Each Session is an independently locked unit; the mutex protects only the
// coordinator's own bookkeeping. Calls to the emulation backend never run
// under the lock, so slow emulator I/O cannot stall slot or spectator
// operations on the same session.
package session
