package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hackgods/steammaster-scheduling/internal/apiclient"
	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/booking"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
	"github.com/hackgods/steammaster-scheduling/internal/logging"
)

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL")).With("service", "seed")
	logger.Info("seed starting")

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		logger.Error("API_BASE_URL is required")
		os.Exit(1)
	}
	count := 50
	if v := os.Getenv("SEED_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			logger.Error("invalid SEED_COUNT", "value", v)
			os.Exit(1)
		}
		count = n
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := apiclient.New(baseURL, 10*time.Second)
	snap, err := catalog.New(client, nil).Load(ctx)
	if err != nil {
		logger.Error("load catalog", "error", err)
		os.Exit(1)
	}

	gofakeit.Seed(time.Now().UnixNano())

	created, err := seedBookings(ctx, client, snap, count, logger)
	if err != nil {
		logger.Error("seed bookings", "error", err, "created", created)
		os.Exit(1)
	}
	logger.Info("seed complete", "created", created)
}

func seedBookings(ctx context.Context, client *apiclient.Client, snap catalog.Snapshot, count int, logger *logging.Logger) (int, error) {
	parents := catalog.ParentCategories(snap.Categories)
	if len(parents) == 0 {
		return 0, errors.New("catalog has no categories")
	}

	hours := booking.DefaultHours()
	slotsPerDay := int(time.Duration(hours.Close-hours.Open) * time.Hour / hours.Interval)
	used := make(map[string]struct{})
	created := 0

	for i := 0; i < count; i++ {
		parent := parents[gofakeit.Number(0, len(parents)-1)]
		svcs := catalog.ServicesForParent(parent.ID, snap.Categories, snap.Services)
		if len(svcs) == 0 {
			continue
		}

		draft := booking.Draft{
			ParentCategoryID: parent.ID,
			Name:             gofakeit.Name(),
			Phone:            gofakeit.Phone(),
			Email:            gofakeit.Email(),
			Address:          gofakeit.Street(),
		}
		for n := gofakeit.Number(1, min(3, len(svcs))); n > 0; n-- {
			draft.Add(svcs[gofakeit.Number(0, len(svcs)-1)])
		}

		// past dates give the dashboard analytics something to chew on
		day := appointment.DateOf(time.Now().AddDate(0, 0, gofakeit.Number(-90, 30)))
		slot := time.Duration(hours.Open)*time.Hour + time.Duration(gofakeit.Number(0, slotsPerDay-1))*hours.Interval
		draft.Date = day
		draft.Time = fmt.Sprintf("%02d:%02d", int(slot.Hours()), int(slot.Minutes())%60)

		key := day.String() + "T" + draft.Time
		if _, taken := used[key]; taken {
			continue
		}
		if err := draft.ValidateStep(booking.StepConfirm); err != nil {
			logger.Warn("skipping invalid fake booking", "error", err)
			continue
		}

		if _, err := client.CreateAppointment(ctx, draft.Request()); err != nil {
			return created, fmt.Errorf("create appointment %d: %w", i, err)
		}
		used[key] = struct{}{}
		created++

		if created%10 == 0 {
			logger.Info("bookings seeded", "progress", fmt.Sprintf("%d/%d", created, count))
		}
	}
	return created, nil
}
