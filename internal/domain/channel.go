package domain

import (
	"fmt"
	"strings"
)

// Channel identifies a delivery transport.
type Channel string

const (
	ChannelDatabase Channel = "database"
	ChannelMail     Channel = "mail"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
)

// AllChannels lists every known channel in canonical order.
var AllChannels = []Channel{ChannelDatabase, ChannelMail, ChannelSMS, ChannelPush}

func (c Channel) Valid() bool {
	switch c {
	case ChannelDatabase, ChannelMail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// ParseChannels converts raw identifiers into an ordered, de-duplicated channel list.
func ParseChannels(raw []string) ([]Channel, error) {
	out := make([]Channel, 0, len(raw))
	seen := make(map[Channel]bool, len(raw))
	for _, r := range raw {
		c := Channel(strings.ToLower(strings.TrimSpace(r)))
		if !c.Valid() {
			return nil, fmt.Errorf("channel %q: %w", r, ErrBadRequest)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// ChannelStrings returns the channels as plain strings.
func ChannelStrings(chs []Channel) []string {
	out := make([]string, len(chs))
	for i, c := range chs {
		out[i] = string(c)
	}
	return out
}
