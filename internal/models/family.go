package models

// FamilyRole represents a member's permission level within a family.
type FamilyRole string

const (
	RoleViewer FamilyRole = "viewer"
	RoleMember FamilyRole = "member"
	RoleAdmin  FamilyRole = "admin"
)

// roleRank orders roles by capability; higher ranks imply lower ones.
var roleRank = map[FamilyRole]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
}

// AtLeast reports whether r grants at least the capabilities of min.
func (r FamilyRole) AtLeast(min FamilyRole) bool {
	return roleRank[r] >= roleRank[min]
}

// Valid reports whether r is a known role.
func (r FamilyRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Family is the shared budgeting unit all finance data hangs off.
type Family struct {
	Base
	Name     string         `gorm:"not null" json:"name"`
	Currency string         `gorm:"size:3;not null;default:USD" json:"currency"`
	Members  []FamilyMember `gorm:"foreignKey:FamilyID" json:"members,omitempty"`
}

// FamilyMember links a user to a family with a role.
type FamilyMember struct {
	Base
	FamilyID uint       `gorm:"not null;uniqueIndex:uq_family_members_user" json:"family_id"`
	UserID   uint       `gorm:"not null;uniqueIndex:uq_family_members_user" json:"user_id"`
	Role     FamilyRole `gorm:"not null;default:member" json:"role"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
