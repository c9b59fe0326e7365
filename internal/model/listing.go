package model

import (
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Currency Types
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// MinOpenSpanMinutes is the default minimum span between a listing's
// opening and closing time (4 hours).
const MinOpenSpanMinutes = 4 * 60

// Listing is a bookable resource rented out in fixed-size slots.
// Times are minutes of day; Granularity is 30 or 60.
type Listing struct {
	gorm.Model
	Title       string `json:"title" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex:idx_owner_listing_slug;not null"`
	Description string `json:"description" gorm:"type:text"`

	OwnerID uint `json:"owner_id" gorm:"uniqueIndex:idx_owner_listing_slug;index"`

	OpenMinute  int `json:"open_minute" gorm:"not null"`
	CloseMinute int `json:"close_minute" gorm:"not null"`
	Granularity int `json:"granularity" gorm:"not null;default:60"`

	PricePerSlot float64  `json:"price_per_slot" gorm:"not null"`
	Currency     Currency `json:"currency" gorm:"not null;default:'USD'"`

	IsActive   bool `json:"is_active" gorm:"default:true"`
	IsApproved bool `json:"is_approved" gorm:"default:false"`

	Owner  User           `json:"-" gorm:"foreignKey:OwnerID"`
	Images []ListingImage `json:"images" gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
}

type ListingImage struct {
	gorm.Model
	ListingID uint   `json:"listing_id"`
	URL       string `json:"url" gorm:"not null"`
	IsCover   bool   `json:"is_cover" gorm:"default:false"`
	Order     int    `json:"order" gorm:"default:0"`

	Listing Listing `json:"-" gorm:"foreignKey:ListingID"`
}

// ValidateHours checks the open/close span against the configured
// minimum (minutes). Pass 0 to use the default.
func (l *Listing) ValidateHours(minSpanMinutes int) error {
	if minSpanMinutes <= 0 {
		minSpanMinutes = MinOpenSpanMinutes
	}
	if l.CloseMinute-l.OpenMinute < minSpanMinutes {
		return fmt.Errorf("listing must be open at least %d hours", minSpanMinutes/60)
	}
	return nil
}

// BeforeCreate fills the slug from the title and de-duplicates it per
// owner.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.Slug == "" {
		s := slug.Make(l.Title)

		var count int64
		tx.Model(&Listing{}).Where("owner_id = ? AND slug = ?", l.OwnerID, s).Count(&count)
		if count > 0 {
			s = fmt.Sprintf("%s-%d", s, count+1)
		}

		l.Slug = s
	}
	return nil
}
