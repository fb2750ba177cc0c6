// Package scan implements the scanning screen's behaviour.
//
// A Session owns every piece of mutable state: the scan Gate, the last
// accepted Record, the Torch mirror, and the status Presenter. One worker
// goroutine (Session.Run) serialises user commands, incoming frames, and
// recognition completions, so no state is shared between goroutines except
// the Presenter's banner, which its timer clears.
//
// The Controller holds the duplicate-suppression rule: a candidate is
// accepted when there is no previous record, when it differs from the last
// accepted value, or when strictly more than the dedup window has passed
// since that value was accepted. Only the single most recent record is kept.
package scan
