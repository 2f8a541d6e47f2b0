package auth

import "strings"

// AccountPatch is a partial update. Nil fields are left untouched.
// ProfileCompleted is never derived from other fields, the owner sets it
// when onboarding is done.
type AccountPatch struct {
	Name             *string `json:"name,omitempty"`
	Nickname         *string `json:"nickname,omitempty"`
	Bio              *string `json:"bio,omitempty"`
	AvatarURL        *string `json:"avatar_url,omitempty"`
	ProfileCompleted *bool   `json:"profile_completed,omitempty"`
	IsAdmin          *bool   `json:"is_admin,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
}

// Change is an old and new value pair
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ProfileOnly drops the privilege fields. Used for self service updates.
func (p AccountPatch) ProfileOnly() AccountPatch {
	p.IsAdmin = nil
	p.IsActive = nil
	return p
}

// TouchesPrivileges reports whether the patch sets is_admin or is_active
func (p AccountPatch) TouchesPrivileges() bool {
	return p.IsAdmin != nil || p.IsActive != nil
}

// Apply writes the patch into account and returns the changed columns along
// with their old and new values.
func (p AccountPatch) Apply(account *Account) ([]string, map[string]Change) {
	columns := []string{}
	changes := map[string]Change{}

	setString := func(column string, dst *string, val *string) {
		if val == nil {
			return
		}
		next := strings.TrimSpace(*val)
		if next == *dst {
			return
		}
		changes[column] = Change{Old: *dst, New: next}
		columns = append(columns, column)
		*dst = next
	}

	setBool := func(column string, dst *bool, val *bool) {
		if val == nil || *val == *dst {
			return
		}
		changes[column] = Change{Old: *dst, New: *val}
		columns = append(columns, column)
		*dst = *val
	}

	setString("name", &account.Name, p.Name)
	setString("nickname", &account.Nickname, p.Nickname)
	setString("bio", &account.Bio, p.Bio)
	setString("avatar_url", &account.AvatarURL, p.AvatarURL)
	setBool("profile_completed", &account.ProfileCompleted, p.ProfileCompleted)
	setBool("is_admin", &account.IsAdmin, p.IsAdmin)
	setBool("is_active", &account.IsActive, p.IsActive)

	return columns, changes
}

// ChangesToDetails flattens changes for audit log details
func ChangesToDetails(changes map[string]Change) map[string]any {
	oldValues := map[string]any{}
	newValues := map[string]any{}
	for k, c := range changes {
		oldValues[k] = c.Old
		newValues[k] = c.New
	}
	return map[string]any{
		"old_values": oldValues,
		"new_values": newValues,
	}
}
