package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(dsn string) {
	var err error

	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		PrepareStmt:    false,
		TranslateError: true, // surface unique violations as gorm.ErrDuplicatedKey
	}

	DB, err = gorm.Open(postgres.New(pgConfig), gormConfig)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Database connected successfully!")
}

func GetDB() *gorm.DB {
	return DB
}

func MigrateDatabase(models ...interface{}) error {
	for _, model := range models {
		if !DB.Migrator().HasTable(model) {
			if err := DB.Migrator().CreateTable(model); err != nil {
				return err
			}
			log.Printf("Created table for %T\n", model)
		} else {
			if err := DB.Migrator().AutoMigrate(model); err != nil {
				return err
			}
			log.Printf("Updated table for %T\n", model)
		}
	}
	return nil
}

// EnsureSlotConstraint creates the partial unique index that makes the
// availability pre-check safe under concurrency: among non-cancelled
// reservations, a (listing, date, start, end) slot can exist once.
// GORM struct tags cannot express partial indexes, so raw SQL it is.
func EnsureSlotConstraint() error {
	return DB.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reservation_slot_active
		ON reservations (listing_id, date, start_minute, end_minute)
		WHERE status <> 'cancelled' AND deleted_at IS NULL
	`).Error
}
