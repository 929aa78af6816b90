package core

import "github.com/dkeye/Relay/internal/domain"

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	id   ConnID
	meta *domain.Member
	sig  SignalConnection
}

func NewMemberSession(id ConnID, meta *domain.Member, sig SignalConnection) MemberSession {
	return &memberSession{id: id, meta: meta, sig: sig}
}

func (m *memberSession) ID() ConnID               { return m.id }
func (m *memberSession) Meta() *domain.Member     { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.sig }
