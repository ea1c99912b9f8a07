package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"btc-metrics/internal/domain"
	"btc-metrics/internal/repository"
	"btc-metrics/internal/util"
)

// ingest seeds the database with a synthetic series so the API and the
// dashboard can be tried without reaching the public upstreams.
func main() {
	dbPath := flag.String("db", "metrics.db", "SQLite database path")
	count := flag.Int("count", 60, "number of samples to generate")
	step := flag.Duration("step", 20*time.Second, "time between generated samples")
	startHeight := flag.Int64("height", 840000, "block height of the first sample")
	startPrice := flag.Float64("price", 63000, "BTC price of the first sample")
	flag.Parse()

	util.CheckAndCreateLogFolder(filepath.Dir(*dbPath))

	sqliteStore := repository.NewSQLiteStore(*dbPath)
	if err := sqliteStore.Init(); err != nil {
		log.Fatalf("Failed to initialize SQLite store for ingestion: %v", err)
	}
	defer sqliteStore.Close()

	end := time.Now().UTC().Truncate(time.Second)
	stored := generateAndIngest(context.Background(), sqliteStore, seed{
		count:  *count,
		step:   *step,
		end:    end,
		height: *startHeight,
		price:  *startPrice,
		rng:    rand.New(rand.NewSource(end.UnixNano())),
	})

	log.Printf("Data ingestion complete: %d samples stored.", stored)
}

type seed struct {
	count  int
	step   time.Duration
	end    time.Time
	height int64
	price  float64
	rng    *rand.Rand
}

// generateAndIngest writes count samples ending at end. The price follows a
// random walk and a new block arrives roughly every ten minutes.
func generateAndIngest(ctx context.Context, s domain.MetricStore, sd seed) int {
	if sd.count <= 0 || sd.step <= 0 {
		return 0
	}

	start := sd.end.Add(-time.Duration(sd.count-1) * sd.step)
	blockChance := sd.step.Seconds() / (10 * time.Minute).Seconds()

	log.Printf("Ingesting %d samples from %s to %s...", sd.count, start.Format(time.RFC3339), sd.end.Format(time.RFC3339))

	height, price := sd.height, sd.price
	stored := 0

	for i := 0; i < sd.count; i++ {
		t := start.Add(time.Duration(i) * sd.step)

		if i > 0 {
			if sd.rng.Float64() < blockChance {
				height++
			}
			price *= 1 + sd.rng.NormFloat64()*0.001
			price = math.Round(price*100) / 100
		}

		sample := domain.MetricSample{
			BlockHeight: height,
			BTCPrice:    price,
			Timestamp:   t.UTC().Format(time.RFC3339),
		}

		if err := s.StoreSample(ctx, sample); err != nil {
			if errors.Is(err, repository.ErrDuplicateTimestamp) {
				log.Printf("Skipping %s: already stored", sample.Timestamp)
			} else {
				log.Printf("Error inserting data for timestamp %s: %v", sample.Timestamp, err)
			}
			continue
		}
		stored++
	}

	return stored
}
