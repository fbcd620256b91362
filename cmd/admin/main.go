package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	storageSvc := storage.NewStorageService(db, rdb, nil, zap.NewNop())

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command := os.Args[1]

	switch command {
	case "migrate":
		if err := storage.Migrate(db); err != nil {
			log.Fatalf("Error running migrations: %v", err)
		}
		fmt.Println("Migrations complete.")
	case "sessions":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin sessions <user_id>")
			os.Exit(1)
		}
		if err := listSessions(ctx, storageSvc, os.Args[2]); err != nil {
			log.Fatalf("Error listing sessions: %v", err)
		}
	case "close-session":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin close-session <session_id> [reason]")
			os.Exit(1)
		}
		sessionID := os.Args[2]
		reason := "closed by operator"
		if len(os.Args) > 3 {
			reason = strings.Join(os.Args[3:], " ")
		}
		if err := storageSvc.TransitionSession(ctx, sessionID, models.StatusCancelled, reason); err != nil {
			log.Fatalf("Error closing session: %v", err)
		}
		fmt.Printf("Session %s has been cancelled.\n", sessionID)
	case "unscan":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unscan <user_id>")
			os.Exit(1)
		}
		userID := os.Args[2]
		if err := storageSvc.RemoveUserFromScanning(ctx, userID); err != nil {
			log.Fatalf("Error removing user from scanning: %v", err)
		}
		fmt.Printf("User %s no longer scans.\n", userID)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func listSessions(ctx context.Context, s storage.Storage, userID string) error {
	sessions, err := s.GetSessionsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		messages, err := s.GetMessages(ctx, sess.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-9s with %-36s cards=%-2d messages=%-3d started=%s\n",
			sess.ID, sess.Status, sess.Counterpart(userID), len(sess.MatchedCardIDs), len(messages),
			sess.StartedAt.Format(time.RFC3339))
	}
	return nil
}
