package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// Metrics
var (
	claimsRaced  uint64
	totalRaces   uint64
	winners200   uint64
	losers409    uint64
	failOther    uint64
	doubleWins   uint64 // claims moved to Processing by more than one caller
	noWinnerRuns uint64
)

func main() {
	app := &cli.App{
		Name:  "benchmark",
		Usage: "race concurrent StartProcessing calls against the claim API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "API base URL"},
			&cli.IntFlag{Name: "workers", Value: 10, Usage: "concurrent callers per claim"},
			&cli.DurationFlag{Name: "duration", Value: 30 * time.Second, Usage: "test duration"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	baseURL := c.String("url")
	workers := c.Int("workers")
	duration := c.Duration("duration")
	log.Printf("Starting Benchmark | Workers per claim: %d | Duration: %s", workers, duration)

	client := &http.Client{Timeout: 5 * time.Second}
	start := time.Now()
	for time.Since(start) < duration {
		id, err := openClaim(c.Context, client, baseURL)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		if err := race(c.Context, client, baseURL, id, workers); err != nil {
			return err
		}
	}

	return printResults(time.Since(start))
}

func openClaim(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	body, _ := json.Marshal(domain.NewClaimPayload{MissionID: uuid.New(), UserID: uuid.New()})
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/v1/claims", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("open claim: status %d", resp.StatusCode)
	}

	var claim domain.ClaimResponse
	if err := json.NewDecoder(resp.Body).Decode(&claim); err != nil {
		return "", err
	}
	return claim.ID, nil
}

// race fires workers concurrent processing requests at one claim and checks
// that exactly one of them won.
func race(ctx context.Context, client *http.Client, baseURL, id string, workers int) error {
	var wins uint64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, "POST", baseURL+"/api/v1/claims/"+id+"/processing", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				atomic.AddUint64(&failOther, 1)
				return nil
			}
			defer resp.Body.Close()

			atomic.AddUint64(&totalRaces, 1)
			switch resp.StatusCode {
			case http.StatusOK:
				atomic.AddUint64(&winners200, 1)
				atomic.AddUint64(&wins, 1)
			case http.StatusConflict:
				atomic.AddUint64(&losers409, 1)
			default:
				atomic.AddUint64(&failOther, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	atomic.AddUint64(&claimsRaced, 1)
	switch {
	case wins > 1:
		atomic.AddUint64(&doubleWins, 1)
	case wins == 0:
		atomic.AddUint64(&noWinnerRuns, 1)
	}
	return nil
}

func printResults(d time.Duration) error {
	total := atomic.LoadUint64(&totalRaces)
	f409 := atomic.LoadUint64(&losers409)

	var abortRate float64
	if total > 0 {
		abortRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"duration_sec":     d.Seconds(),
		"claims_raced":     atomic.LoadUint64(&claimsRaced),
		"total_requests":   total,
		"throughput_tps":   float64(total) / d.Seconds(),
		"winners":          atomic.LoadUint64(&winners200),
		"losers_conflict":  f409,
		"loser_rate_pct":   abortRate,
		"double_wins":      atomic.LoadUint64(&doubleWins),
		"claims_no_winner": atomic.LoadUint64(&noWinnerRuns),
		"errors":           atomic.LoadUint64(&failOther),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	file, err := os.Create("results_processing_race.json")
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewEncoder(file).Encode(results)
}
