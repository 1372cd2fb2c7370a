package main

import (
	"context"
	"log"

	"marketplace-be/internal/config"
	"marketplace-be/internal/entity"
	"marketplace-be/internal/repository/implementation"
	"marketplace-be/pkg/database"
)

// defaultPlans are the catalog entries checkout can sell.
var defaultPlans = []entity.Plan{
	{
		Slug:     "pro-monthly",
		Name:     "Pro",
		Price:    5000,
		Currency: "NGN",
		Features: map[string]interface{}{"listings": 50, "featured_slots": 2},
		IsActive: true,
	},
	{
		Slug:     "business-monthly",
		Name:     "Business",
		Price:    15000,
		Currency: "NGN",
		Features: map[string]interface{}{"listings": 500, "featured_slots": 10, "analytics": true},
		IsActive: true,
	},
}

func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	plans := implementation.NewPlanRepository(db)

	for i := range defaultPlans {
		plan := defaultPlans[i]
		existing, err := plans.FindBySlug(ctx, plan.Slug)
		if err != nil {
			log.Fatalf("Error: Failed to look up plan %s: %v", plan.Slug, err)
		}
		if existing != nil {
			log.Printf("Skip: plan %s already exists", plan.Slug)
			continue
		}
		if err := plans.Create(ctx, &plan); err != nil {
			log.Fatalf("Error: Failed to create plan %s: %v", plan.Slug, err)
		}
		log.Printf("Seeded plan %s (%s)", plan.Slug, plan.Id)
	}

	log.Println("✅ Seeding completed")
}
