package model

import (
	"context"
	"strings"
	"time"
)

// ProfileStore persists profile rows in the remote store.
type ProfileStore interface {
	Create(ctx context.Context, row ProfileRow) (ProfileRow, error)
	GetByID(ctx context.Context, id string) (ProfileRow, error)
	Update(ctx context.Context, id string, patch ProfilePatch) (ProfileRow, error)
}

// ProfileRow is a row of the remote profiles table.
type ProfileRow struct {
	ID        string
	Role      Role
	Profile   Profile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfilePatch is a partial profile update. Nil fields keep their value.
// Email is absent: it is the sign-in key and belongs to the identity.
type ProfilePatch struct {
	Name       *string
	Phone      *string
	Bio        *string
	Location   *string
	Occupation *string
	Education  *string
	AvatarRef  *string
}

// IsEmpty reports whether the patch sets no field.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Bio == nil &&
		p.Location == nil && p.Occupation == nil && p.Education == nil && p.AvatarRef == nil
}

// Apply merges the patch into profile and returns the result.
func (p ProfilePatch) Apply(profile Profile) Profile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&profile.Name, p.Name)
	set(&profile.Phone, p.Phone)
	set(&profile.Bio, p.Bio)
	set(&profile.Location, p.Location)
	set(&profile.Occupation, p.Occupation)
	set(&profile.Education, p.Education)
	set(&profile.AvatarRef, p.AvatarRef)
	return profile
}

// ParseProfilePatch builds a patch from loose key/value input.
// Keys naming fields owned elsewhere (id, role, email, course sets) and unknown keys are ignored.
func ParseProfilePatch(fields map[string]string) ProfilePatch {
	var p ProfilePatch
	for key, value := range fields {
		v := value
		switch normalizeKey(key) {
		case "name":
			p.Name = &v
		case "phone":
			p.Phone = &v
		case "bio":
			p.Bio = &v
		case "location":
			p.Location = &v
		case "occupation":
			p.Occupation = &v
		case "education":
			p.Education = &v
		case "avatarref", "avatar":
			p.AvatarRef = &v
		}
	}
	return p
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}
