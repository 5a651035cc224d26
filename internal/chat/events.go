package chat

// EventSink receives best-effort notifications of lifecycle and traffic
// events, always called after every core lock the triggering handler took
// has been released. Implementations must not block: the engine
// calls these synchronously from the handler goroutine, strictly outside
// the core lock hierarchy, so a slow sink would only ever delay the
// handler that produced the event, never any other session.
//
// A nil EventSink is valid and every Engine method treats it as a no-op,
// so the event bus publisher can be entirely absent when disabled.
type EventSink interface {
	SessionAccepted(sessionID uint64)
	SessionReleased(sessionID uint64, accountNo int64)
	SectorMoved(accountNo int64, x, y uint16)
	MessageBroadcast(accountNo int64, recipients int, bytes int)
}
