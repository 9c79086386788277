package notification

import "time"

const (
	// FrequencyInstant delivers every notification as it happens.
	FrequencyInstant = "instant"

	// FrequencyDaily batches delivery into a daily digest.
	FrequencyDaily = "daily"
)

// Notification is a stored in-app notification.
type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

// Preferences controls which channels a user receives notifications on and
// which sources are muted.
type Preferences struct {
	UserID           string
	InAppEnabled     bool
	PushEnabled      bool
	TelegramEnabled  bool
	Frequency        string
	MutedChallenges  []string
	MutedUsers       []string
	UpdatedAt        time.Time
}

// DefaultPreferences returns the preferences applied when a user has never
// saved any: every channel enabled, instant delivery, nothing muted.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:          userID,
		InAppEnabled:    true,
		PushEnabled:     true,
		TelegramEnabled: true,
		Frequency:       FrequencyInstant,
	}
}

// MutedChallenge reports whether the given challenge is muted.
func (p Preferences) MutedChallenge(id string) bool {
	return contains(p.MutedChallenges, id)
}

// MutedUser reports whether notifications from the given user are muted.
func (p Preferences) MutedUser(id string) bool {
	return contains(p.MutedUsers, id)
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}
