package main

import (
	"context"
	"flag"
	"log"

	"github.com/savegress/clinicore/internal/clinic"
	"github.com/savegress/clinicore/internal/config"
	"github.com/savegress/clinicore/internal/reports"
	"github.com/savegress/clinicore/internal/seed"
	"github.com/savegress/clinicore/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log.Println("Starting Clinicore...")

	cfg := loadConfig(*configPath)
	ctx := context.Background()

	store, err := initStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	reg, err := clinic.New(ctx, store)
	if err != nil {
		log.Fatalf("Failed to restore registry: %v", err)
	}

	if cfg.Bootstrap.Seed && reg.GetStats().Departments == 0 {
		log.Println("Loading seed data...")
		if err := seed.Load(ctx, reg); err != nil {
			log.Fatalf("Failed to seed: %v", err)
		}
	}

	stats := reg.GetStats()
	log.Printf("Registry: %d departments, %d doctors, %d patients, %d appointments",
		stats.Departments, stats.Doctors, stats.Patients, stats.Appointments)

	reporter := reports.NewReporter(reg)
	for _, row := range reporter.UpcomingAppointments(ctx) {
		log.Printf("Upcoming: %s %s  %s with %s", row.Date, row.Time, row.PatientName, row.DoctorName)
	}
	for _, row := range reporter.PaidTotalsByDoctor(ctx) {
		log.Printf("Paid total: %s = %s", row.DoctorName, row.TotalPaid.StringFixed(2))
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		log.Println("No config file given, using defaults")
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func initStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		return nil, nil
	default:
		return storage.NewEmbeddedStore(cfg.Storage.Path)
	}
}
