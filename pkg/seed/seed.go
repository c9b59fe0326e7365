package seed

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"slotmarket_backend/internal/model"
)

// SeedDemoData creates a demo owner, consumer and a pair of listings
// for local development. Safe to run repeatedly.
func SeedDemoData(db *gorm.DB) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	users := []model.User{
		{
			Email:      "owner@example.com",
			Username:   "demo-owner",
			Password:   string(password),
			Role:       model.RoleOwner,
			IsVerified: true,
		},
		{
			Email:      "consumer@example.com",
			Username:   "demo-consumer",
			Password:   string(password),
			Role:       model.RoleConsumer,
			IsVerified: true,
		},
		{
			Email:      "admin@example.com",
			Username:   "demo-admin",
			Password:   string(password),
			Role:       model.RoleAdmin,
			IsVerified: true,
		},
	}

	for i := range users {
		result := db.FirstOrCreate(&users[i], model.User{Email: users[i].Email})
		if result.Error != nil {
			log.Printf("Error creating user %s: %v", users[i].Email, result.Error)
		}
	}

	var owner model.User
	if err := db.First(&owner, "email = ?", "owner@example.com").Error; err != nil {
		log.Printf("Error loading demo owner: %v", err)
		return
	}

	listings := []model.Listing{
		{
			Title:        "Downtown Rehearsal Studio",
			Description:  "Sound-treated room with backline",
			OwnerID:      owner.ID,
			OpenMinute:   9 * 60,
			CloseMinute:  17 * 60,
			Granularity:  60,
			PricePerSlot: 100.00,
			Currency:     model.CurrencyUSD,
			IsActive:     true,
			IsApproved:   true,
		},
		{
			Title:        "Riverside Padel Court",
			Description:  "Outdoor court, lighting until late",
			OwnerID:      owner.ID,
			OpenMinute:   8 * 60,
			CloseMinute:  22 * 60,
			Granularity:  30,
			PricePerSlot: 25.00,
			Currency:     model.CurrencyUSD,
			IsActive:     true,
			IsApproved:   true,
		},
	}

	for _, listing := range listings {
		result := db.FirstOrCreate(&listing, model.Listing{Title: listing.Title, OwnerID: owner.ID})
		if result.Error != nil {
			log.Printf("Error creating listing %s: %v", listing.Title, result.Error)
		}
	}

	log.Println("Demo data seeded successfully!")
}
