package domain

// MessageBus carries inbound messages from the transport to the relay loop.
type MessageBus interface {
	Publish(msg IncomingMessage)
	Subscribe() <-chan IncomingMessage
	Close()
}
