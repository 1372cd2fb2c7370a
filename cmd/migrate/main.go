package main

import (
	"log"

	"marketplace-be/internal/config"
	"marketplace-be/internal/model"
	"marketplace-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up Extensions...")
	// gen_random_uuid() defaults
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.SubscriptionPlan{},
		&model.Subscription{},
		&model.PaymentTransaction{},
		&model.Notification{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating Views...")
	postMigrationSQL := []string{
		`CREATE OR REPLACE VIEW user_payment_history AS
		 SELECT pt.user_id, u.full_name, pt.reference, pt.amount, pt.currency, pt.status, pt.subscription_id, pt.created_at AS payment_date
		 FROM payment_transactions pt
		 JOIN users u ON pt.user_id = u.id
		 ORDER BY pt.created_at DESC;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
