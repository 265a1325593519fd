package core

// Authorization is a pure decision over already-loaded data. The guard only
// answers; rejections surface as ErrUnauthorized at the call site.

// CanView reports whether principal may read the message: only the sender
// and the recipient can.
func CanView(principal string, m *MessageDetail) bool {
	return principal == m.FromUser.Username || principal == m.ToUser.Username
}

// CanMarkRead reports whether principal may mark the message read: only the
// recipient can, the sender may not mark their own sent message.
func CanMarkRead(principal string, m *MessageDetail) bool {
	return principal == m.ToUser.Username
}
