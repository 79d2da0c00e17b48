package transport

import (
	"context"
	"errors"
	"strings"
)

// Channel tags embedded in recipient addresses.
const (
	ChannelTelegram = "telegram"
	ChannelWhatsApp = "whatsapp"
)

var ErrUnknownChannel = errors.New("unknown channel")

// Update is an inbound message from any channel.
//
// From is a channel-prefixed address ("telegram:12345",
// "whatsapp:+15551234567") that is also a valid send target, so a reply
// goes back exactly where the message came from.
type Update struct {
	From string
	Text string
}

// Adapter is a channel-specific transport.
//
// Start begins receiving inbound messages and forwards them on out; it must
// not block. Stop is best-effort graceful. SendText delivers one message to
// a recipient address on this adapter's channel.
type Adapter interface {
	Channel() string

	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, recipient, text string) error
}

// SplitAddress splits a channel-prefixed address into its channel tag and
// channel-local part.
func SplitAddress(addr string) (channel, rest string, ok bool) {
	channel, rest, ok = strings.Cut(addr, ":")
	if !ok || channel == "" || rest == "" {
		return "", "", false
	}
	return channel, rest, true
}

// JoinAddress builds a channel-prefixed address.
func JoinAddress(channel, rest string) string {
	return channel + ":" + rest
}
