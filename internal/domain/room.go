package domain

import "strings"

// RoomName identifies a stream room. Names are case-sensitive and compared verbatim.
type RoomName string

// Valid reports whether the name carries anything besides whitespace.
func (n RoomName) Valid() bool { return present(string(n)) }

func present(s string) bool { return strings.TrimSpace(s) != "" }
