package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"groundbook/config"
	"groundbook/database"
	groundRepo "groundbook/database/repository/ground"
	"groundbook/database/repository/pgstore"
	"groundbook/handlers"
	"groundbook/models"
	"groundbook/utils"
)

type rate struct {
	label string
	rng   string
	price float64
}

var seedGrounds = []struct {
	id       string
	name     string
	capacity int
	rates    []rate
}{
	{"turf-one", "Turf One (5-a-side)", 14, []rate{
		{"day", "06:00-18:00", 500},
		{"floodlights", "18:00-06:00", 800},
	}},
	{"turf-two", "Turf Two (7-a-side)", 18, []rate{
		{"early", "05:00-09:00", 600},
		{"day", "09:00-17:00", 700},
		{"prime", "17:00-23:00", 1200},
		{"late", "23:00-05:00", 900},
	}},
	{"cricket-nets", "Cricket Nets", 8, []rate{
		{"flat", "00:00-24:00", 400},
	}},
}

func main() {
	tokens := flag.Bool("tokens", true, "print development tokens for a requester and an operator")
	flag.Parse()

	config.LoadConfig()

	var repo groundRepo.GroundRepository
	switch config.AppConfig.Store {
	case "postgres":
		database.InitPostgres()
		repo = pgstore.NewGroundStore(database.Postgres)
	case "memory":
		log.Fatal("STORE=memory keeps no state between processes; seed through PUT /api/grounds/:id instead")
	default:
		repo = groundRepo.NewMongoGroundRepo(database.Mongo())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure ground indexes: %v", err)
	}

	now := time.Now()
	for _, sg := range seedGrounds {
		input := models.GroundInput{Name: sg.name, Capacity: sg.capacity}
		for _, r := range sg.rates {
			input.RateRanges = append(input.RateRanges, models.RateRangeInput{Label: r.label, Range: r.rng, HourlyRate: r.price})
		}
		g, err := handlers.BuildGround(sg.id, input, now)
		if err != nil {
			log.Fatalf("Invalid seed ground %s: %v", sg.id, err)
		}
		if err := repo.Upsert(ctx, g); err != nil {
			log.Fatalf("Failed to save ground %s: %v", sg.id, err)
		}
		fmt.Printf("seeded %-14s %d rate ranges\n", g.ID, len(g.RateRanges))
	}

	if *tokens {
		requester, err := utils.GenerateToken("dev-requester", models.ActorRequester, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		operator, err := utils.GenerateToken("dev-operator", models.ActorOperator, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("\nrequester token: %s\noperator token:  %s\n", requester, operator)
	}
}
