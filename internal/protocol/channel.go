package protocol

import "strings"

const (
	PrivatePrefix  = "private-"
	PresencePrefix = "presence-"
)

// ChannelType is the access class encoded in a channel name prefix.
type ChannelType int

const (
	ChannelPublic ChannelType = iota
	ChannelPrivate
	ChannelPresence
)

func TypeOf(channel string) ChannelType {
	switch {
	case strings.HasPrefix(channel, PresencePrefix):
		return ChannelPresence
	case strings.HasPrefix(channel, PrivatePrefix):
		return ChannelPrivate
	default:
		return ChannelPublic
	}
}

// RequiresAuth reports whether subscribing needs a valid signature.
func (t ChannelType) RequiresAuth() bool {
	return t == ChannelPrivate || t == ChannelPresence
}

func (t ChannelType) String() string {
	switch t {
	case ChannelPrivate:
		return "private"
	case ChannelPresence:
		return "presence"
	default:
		return "public"
	}
}

func IsPresence(channel string) bool {
	return TypeOf(channel) == ChannelPresence
}
