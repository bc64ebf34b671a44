package domain

import "time"

// Role defines the authorization level of an account. Roles are assigned
// server-side; registration never honors a client-supplied role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Provider identifies where an account's credentials live.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderApple    Provider = "apple"
)

// KnownProvider reports whether p is one of the supported social providers.
func KnownProvider(p Provider) bool {
	switch p {
	case ProviderGoogle, ProviderFacebook, ProviderApple:
		return true
	}
	return false
}

// Profile holds free-form presentation attributes of an account.
type Profile struct {
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address   string `bson:"address,omitempty" json:"address,omitempty"`
	AvatarURL string `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	Bio       string `bson:"bio,omitempty" json:"bio,omitempty"`
}

// AccessibilityPrefs captures the accessibility needs the app filters
// places by.
type AccessibilityPrefs struct {
	WheelchairUser     bool `bson:"wheelchair_user" json:"wheelchairUser"`
	NeedsRamp          bool `bson:"needs_ramp" json:"needsRamp"`
	AccessibleRestroom bool `bson:"accessible_restroom" json:"accessibleRestroom"`
	AccessibleParking  bool `bson:"accessible_parking" json:"accessibleParking"`
}

// User is the durable identity record.
//
// Email is globally unique (case-insensitive index in the store). For pure
// social accounts PasswordHash is empty. ResetTokenHash and ResetTokenExpiry
// are set and cleared together: a ticket is only usable while the expiry is
// in the future, and a successful reset clears both in one update.
type User struct {
	ID            string             `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`
	FirstName     string             `bson:"first_name,omitempty" json:"firstName"`
	LastName      string             `bson:"last_name,omitempty" json:"lastName"`
	Role          Role               `bson:"role" json:"role"`
	Provider      Provider           `bson:"provider,omitempty" json:"provider"`
	ProviderID    string             `bson:"provider_id,omitempty" json:"-"`
	Profile       Profile            `bson:"profile,omitempty" json:"profile"`
	Accessibility AccessibilityPrefs `bson:"accessibility,omitempty" json:"accessibility"`
	Language      string             `bson:"language,omitempty" json:"language,omitempty"`

	ResetTokenHash   string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Sanitized returns a copy safe to hand to clients: no password hash and no
// reset ticket.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.ResetTokenHash = ""
	c.ResetTokenExpiry = nil
	return &c
}
