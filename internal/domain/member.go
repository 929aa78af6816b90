package domain

import "time"

// Member represents a connection's participation meta.
// No transport or lifecycle logic here.
type Member struct {
	User        *User
	ConnectedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, at time.Time) *Member {
	return &Member{User: user, ConnectedAt: at}
}
