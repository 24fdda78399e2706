package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawkit/pet-reminders/internal/config"
	"github.com/pawkit/pet-reminders/internal/database"
	"github.com/pawkit/pet-reminders/internal/queue"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test service dependencies",
		Long:  "Verify that the database, message broker and JWKS endpoint are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			fmt.Println("Testing database connection...")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database ping failed: %w", err)
			}
			fmt.Println("✓ Database is reachable")

			fmt.Println("\nTesting message broker connection...")
			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("broker connection failed: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close broker connection: %v\n", err)
				}
			}()
			if err := jobQueue.HealthCheck(ctx); err != nil {
				return fmt.Errorf("broker health check failed: %w", err)
			}
			fmt.Println("✓ Message broker is reachable")

			if cfg.JWKSURL == "" {
				fmt.Println("\nJWKS_URL not set, skipping JWKS endpoint test")
				return nil
			}

			fmt.Printf("\nTesting JWKS endpoint: %s\n", cfg.JWKSURL)
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(cfg.JWKSURL)
			if err != nil {
				return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
				}
			}()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("JWKS endpoint returned status: %d", resp.StatusCode)
			}
			fmt.Println("✓ JWKS endpoint is accessible")

			return nil
		},
	}

	return cmd
}
