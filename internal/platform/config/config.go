package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// InvitationExpiry is the pending window for new invitations.
	InvitationExpiry time.Duration

	// MigrationBatchSize is the number of legacy users converted per batch.
	MigrationBatchSize int

	// AMQPURL is the broker for background tasks; empty disables the queue.
	AMQPURL       string
	TaskQueueName string

	// RateLimit is a ulule/limiter formatted rate, e.g. "100-M".
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "expensio-backend")
	viper.SetDefault("INVITATION_EXPIRY_DURATION", "168h")
	viper.SetDefault("MIGRATION_BATCH_SIZE", 100)
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("TASK_QUEUE_NAME", "expensio.tasks")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiry, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiry = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiry)
	}
	cfg.JWTExpiryDuration = jwtExpiry
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	invitationExpiryStr := viper.GetString("INVITATION_EXPIRY_DURATION")
	invitationExpiry, err := time.ParseDuration(invitationExpiryStr)
	if err != nil {
		invitationExpiry = 7 * 24 * time.Hour
		log.Printf("Warning: Invalid value for INVITATION_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", invitationExpiryStr, invitationExpiry)
	}
	cfg.InvitationExpiry = invitationExpiry

	cfg.MigrationBatchSize = viper.GetInt("MIGRATION_BATCH_SIZE")
	if cfg.MigrationBatchSize <= 0 {
		cfg.MigrationBatchSize = 100
	}

	cfg.AMQPURL = viper.GetString("AMQP_URL")
	cfg.TaskQueueName = viper.GetString("TASK_QUEUE_NAME")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}
