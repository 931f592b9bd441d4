// Package clock converts between time.Time and the Windows FILETIME epoch
// used by PT_SYSTIME properties, and defines the Source interface the
// façade uses to inject "now" so serialization stays deterministic.
package clock

import "time"

// unixToFileTimeEpochSeconds is the number of seconds between the FILETIME
// epoch (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const unixToFileTimeEpochSeconds = 11644473600

// ticksPerSecond is the number of 100ns FILETIME ticks in one second.
const ticksPerSecond = 10_000_000

// ToFileTime converts an absolute instant to its Windows FILETIME value:
// a count of 100ns intervals since 1601-01-01 UTC. Callers write it as
// 8 little-endian bytes.
func ToFileTime(t time.Time) uint64 {
	secs := t.Unix() + unixToFileTimeEpochSeconds
	ticks := uint64(secs) * ticksPerSecond
	ticks += uint64(t.Nanosecond()) / 100
	return ticks
}

// FromFileTime is the inverse of ToFileTime.
func FromFileTime(ticks uint64) time.Time {
	secs := int64(ticks/ticksPerSecond) - unixToFileTimeEpochSeconds
	nsec := int64(ticks%ticksPerSecond) * 100
	return time.Unix(secs, nsec).UTC()
}

// Source supplies the injected "now" a MessageDescription is serialized
// with. The core never calls time.Now() directly so that two
// serializations of the same description, given the same Source, produce
// byte-identical output.
type Source interface {
	Now() time.Time
}

// Fixed is a Source that always returns the same instant.
type Fixed time.Time

// Now implements Source.
func (f Fixed) Now() time.Time { return time.Time(f) }
