package models

// Role is a member's role within a travel.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Travel is the aggregate root of a shared trip.
type Travel struct {
	// ID is the unique identifier for the travel (UUID format).
	ID string

	// Name is the display name of the travel (e.g., "Jeju 2026").
	Name string

	// BaseCurrency is the ISO-4217 code every expense is normalized into.
	BaseCurrency string

	// Members is the membership list in join order.
	Members []Member

	// CreatedAt is the Unix timestamp when the travel was created.
	CreatedAt int64
}

// Member is a participant in a Travel.
type Member struct {
	// ID is the member's user ID. It is stable for the lifetime of the travel.
	ID string

	// Name is the display name resolved from the user's profile. Nil when unknown.
	Name *string

	Role Role

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64
}

// DisplayName returns the member's name, or its ID when no name is known.
func (m Member) DisplayName() string {
	if m.Name == nil || *m.Name == "" {
		return m.ID
	}
	return *m.Name
}

// HasMember reports whether memberID belongs to the travel.
func (t *Travel) HasMember(memberID string) bool {
	_, ok := t.Member(memberID)
	return ok
}

// Member looks up a member by ID.
func (t *Travel) Member(memberID string) (Member, bool) {
	for _, m := range t.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return Member{}, false
}

// MemberIDs returns the IDs of all members in join order.
func (t *Travel) MemberIDs() []string {
	ids := make([]string, len(t.Members))
	for i, m := range t.Members {
		ids[i] = m.ID
	}
	return ids
}
