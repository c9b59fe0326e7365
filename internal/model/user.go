package model

import (
	"strings"

	"gorm.io/gorm"
)

// Role controls what a user may do with reservations and listings.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Role     Role   `json:"role" gorm:"not null;default:'consumer'"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`

	IsVerified bool `json:"is_verified" gorm:"default:false"`

	Listings      []Listing      `json:"-" gorm:"foreignKey:OwnerID"`
	PayoutAccount *PayoutAccount `json:"-" gorm:"foreignKey:OwnerID"`
}

func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"username":    u.Username,
		"full_name":   u.GetFullName(),
		"role":        u.Role,
		"is_verified": u.IsVerified,
	}
}
