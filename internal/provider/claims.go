package provider

// LinkedAccountTelegram tags a linked messaging-platform account in the claims payload.
const LinkedAccountTelegram = "telegram"

// LinkedAccount describes an external account attached to a provider identity.
// Fields beyond Type are provider specific and optional.
type LinkedAccount struct {
	Type             string `json:"type"`
	TelegramUserID   string `json:"telegramUserId,omitempty"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
}

// Claims carries the verified identity attributes returned by the provider.
// The payload is loosely typed upstream; every field other than the subject
// must be treated as optional.
type Claims struct {
	Subject        string          `json:"sub"`
	UserID         string          `json:"userId"`
	Email          string          `json:"email,omitempty"`
	GivenName      string          `json:"given_name,omitempty"`
	FamilyName     string          `json:"family_name,omitempty"`
	Name           string          `json:"name,omitempty"`
	Picture        string          `json:"picture,omitempty"`
	LinkedAccounts []LinkedAccount `json:"linkedAccounts,omitempty"`
}

// ID resolves the local identifier for the claims: the subject id, with the
// provider alias field accepted as fallback.
func (c *Claims) ID() string {
	if c == nil {
		return ""
	}
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// Telegram returns the linked telegram account, if any.
func (c *Claims) Telegram() (LinkedAccount, bool) {
	if c == nil {
		return LinkedAccount{}, false
	}
	for _, acct := range c.LinkedAccounts {
		if acct.Type == LinkedAccountTelegram && acct.TelegramUserID != "" {
			return acct, true
		}
	}
	return LinkedAccount{}, false
}
