package core

import "errors"

var (
	// ErrBackpressure is returned by TrySend when the outbound buffer is full.
	ErrBackpressure = errors.New("send buffer full")
	// ErrConnClosed is returned by TrySend after Close.
	ErrConnClosed = errors.New("connection closed")
)

// Frame is one encoded outbound event.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues without blocking.
	TrySend(Frame) error
	// ShedOldest discards the oldest queued frame. Reports whether one was discarded.
	ShedOldest() bool
	Close()
}
