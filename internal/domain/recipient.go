package domain

// Recipient is the routing view of a user consumed by channel senders.
type Recipient struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	DeviceTokens []string
	Topics       []string
	Preferences  ChannelPreferences
}

// Allows reports whether the recipient opted in to c.
func (r *Recipient) Allows(c Channel) bool {
	return r.Preferences.Allows(c)
}
