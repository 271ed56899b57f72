// Package models holds the wire and record types shared across packages.
package models

// Gender follows the server's numeric encoding.
type Gender int

const (
	GenderUnknown Gender = 0
	GenderMale    Gender = 1
	GenderFemale  Gender = 2
)

// UserInfo is the identity the server returns for the signed-in user.
// Nickname is the display name.
type UserInfo struct {
	ID          string   `json:"id"`
	Nickname    string   `json:"nickname"`
	Avatar      string   `json:"avatar,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	OpenID      string   `json:"openid,omitempty"`
	Email       string   `json:"email,omitempty"`
	Gender      Gender   `json:"gender,omitempty"`
	Birthday    string   `json:"birthday,omitempty"`
	Signature   string   `json:"signature,omitempty"`
	Location    string   `json:"location,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (u *UserInfo) Clone() *UserInfo {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	c.Permissions = append([]string(nil), u.Permissions...)
	return &c
}

// ProfileUpdate is a partial UserInfo; nil fields are left unchanged.
type ProfileUpdate struct {
	Nickname  *string `json:"nickname,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Gender    *Gender `json:"gender,omitempty"`
	Birthday  *string `json:"birthday,omitempty"`
	Signature *string `json:"signature,omitempty"`
	Location  *string `json:"location,omitempty"`
}

// Apply copies the set fields of p onto u.
func (p ProfileUpdate) Apply(u *UserInfo) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Nickname, p.Nickname)
	set(&u.Avatar, p.Avatar)
	set(&u.Phone, p.Phone)
	set(&u.Email, p.Email)
	set(&u.Birthday, p.Birthday)
	set(&u.Signature, p.Signature)
	set(&u.Location, p.Location)
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
}
