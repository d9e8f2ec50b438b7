// Copyright 2025 Certen Protocol
//
// Firestore Client
// Firebase Admin SDK client for syncing proof cycle data to Firestore

package firestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Client wraps the Firestore client with Certen-specific functionality
type Client struct {
	app       *firebase.App
	firestore *gcpfirestore.Client
	projectID string
	logger    *log.Logger
	enabled   bool
	mu        sync.RWMutex
}

// ClientConfig holds configuration for the Firestore client
type ClientConfig struct {
	// ProjectID is the Firebase/GCP project ID
	ProjectID string

	// CredentialsFile is the path to the service account JSON file
	// If empty, uses GOOGLE_APPLICATION_CREDENTIALS environment variable
	CredentialsFile string

	// Enabled controls whether Firestore operations are actually performed
	// If false, all operations are no-ops (useful for local development)
	Enabled bool

	// Logger for client operations
	Logger *log.Logger
}

// DefaultConfig returns a ClientConfig with values from environment variables
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Enabled:         getEnvBool("FIRESTORE_ENABLED", false),
		Logger:          log.New(os.Stdout, "[Firestore] ", log.LstdFlags),
	}
}

// NewClient creates a new Firestore client
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[Firestore] ", log.LstdFlags)
	}

	client := &Client{
		projectID: cfg.ProjectID,
		logger:    cfg.Logger,
		enabled:   cfg.Enabled,
	}

	// If not enabled, return a no-op client
	if !cfg.Enabled {
		cfg.Logger.Println("Firestore sync is DISABLED - running in no-op mode")
		return client, nil
	}

	// Validate configuration
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required when Firestore is enabled")
	}

	// Build Firebase options
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	// If no credentials file, the SDK will use GOOGLE_APPLICATION_CREDENTIALS or
	// application default credentials (useful in GCP environments)

	// Initialize Firebase app
	config := &firebase.Config{
		ProjectID: cfg.ProjectID,
	}

	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	// Create Firestore client
	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	client.app = app
	client.firestore = firestoreClient

	cfg.Logger.Printf("Firestore client initialized for project: %s", cfg.ProjectID)
	return client, nil
}

// Close closes the Firestore client
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.firestore != nil {
		return c.firestore.Close()
	}
	return nil
}

// IsEnabled returns whether Firestore sync is enabled
func (c *Client) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Doc returns a reference to a Firestore document
func (c *Client) Doc(path string) *gcpfirestore.DocumentRef {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.Doc(path)
}

// helper to parse bool from env
func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1" || val == "yes"
}
