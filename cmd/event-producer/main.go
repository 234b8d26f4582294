// Command event-producer publishes document change events for local runs.
// It either replays envelopes from a JSON lines file or simulates anglers
// joining a tournament and getting catches approved.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/kafka"
)

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "eging-document-changes", "Kafka topic")
	replay := flag.String("replay", "", "JSON lines file of envelopes to publish")
	tournamentID := flag.String("tournament", "spring-cup", "Tournament ID for simulated events")
	anglers := flag.Int("anglers", 20, "Number of simulated anglers")
	rate := flag.Int("rate", 5, "Simulated submissions per second")
	duration := flag.Duration("duration", time.Minute, "How long to simulate (0 = until interrupted)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	producer, err := kafka.NewSyncProducer(strings.Split(*brokers, ","))
	if err != nil {
		logger.Error("failed to create producer", "error", err)
		os.Exit(1)
	}
	pub := kafka.NewPublisher(producer, *topic, logger)
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("failed to close producer", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var sent int
	if *replay != "" {
		sent, err = replayFile(pub, *replay)
	} else {
		sent, err = simulate(ctx, pub, *tournamentID, *anglers, *rate)
	}
	if err != nil {
		logger.Error("publishing stopped", "sent", sent, "error", err)
		os.Exit(1)
	}
	logger.Info("done", "sent", sent)
}

func replayFile(pub *kafka.Publisher, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sent := 0
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		env, err := kafka.DecodeEnvelope([]byte(text))
		if err != nil {
			return sent, fmt.Errorf("line %d: %w", line, err)
		}
		if err := pub.Publish(env); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, scanner.Err()
}

// simulate registers every angler, then approves random catches at rate
// per second until ctx ends.
func simulate(ctx context.Context, pub *kafka.Publisher, tournamentID string, anglers, rate int) (int, error) {
	if anglers <= 0 || rate <= 0 {
		return 0, fmt.Errorf("anglers and rate must be positive")
	}

	sent := 0
	for i := range anglers {
		err := pub.Publish(kafka.Envelope{
			Type:         domain.EventEntryCreated,
			TournamentID: tournamentID,
			UserID:       anglerID(i),
			OccurredAt:   time.Now(),
		})
		if err != nil {
			return sent, err
		}
		sent++
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
		}

		userID := anglerID(rand.IntN(anglers))
		size := 10 + rand.Float64()*30
		now := time.Now()
		pending := &domain.Submission{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			UserID:       userID,
			Status:       domain.SubmissionPending,
			SubmittedAt:  now,
		}
		approved := *pending
		approved.Status = domain.SubmissionApproved
		approved.JudgedSize = float64(int(size*10)) / 10

		events := []kafka.Envelope{
			{
				Type:       domain.EventPostCreated,
				UserID:     userID,
				PostID:     uuid.NewString(),
				Size:       approved.JudgedSize,
				OccurredAt: now,
			},
			{
				Type:         domain.EventSubmissionUpdated,
				TournamentID: tournamentID,
				SubmissionID: pending.ID,
				Before:       pending,
				After:        &approved,
				OccurredAt:   now,
			},
		}
		for _, env := range events {
			if err := pub.Publish(env); err != nil {
				return sent, err
			}
			sent++
		}
	}
}

func anglerID(i int) string {
	return fmt.Sprintf("angler-%03d", i+1)
}
