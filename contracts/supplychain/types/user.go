package types

// User is the profile of a participant.
type User struct {
	Name        string
	ContactNo   string
	Role        Role
	IsActive    bool
	ProfileHash Hash
}

// IsZero returns true for the profile of an identity never written. The
// profile hash is the only field that tells apart an empty profile.
func (u User) IsZero() bool {
	return u.ProfileHash.IsZero()
}
