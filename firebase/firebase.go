package firebase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"storefront-backend/logger"
)

type Config struct {
	// Credentials is either a path to a service-account file or the JSON itself.
	Credentials   string
	ProjectID     string
	StorageBucket string
}

// App is the initialised Firebase Admin SDK.
type App struct {
	app    *firebase.App
	bucket string
	log    *logger.Logger
}

func Init(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	var opts []option.ClientOption

	if creds := strings.TrimSpace(cfg.Credentials); creds != "" {
		if strings.HasPrefix(creds, "{") {
			log.Info(ctx, "using Firebase credentials from environment variable")
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			log.Info(ctx, "using Firebase credentials from file "+creds)
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	} else {
		log.Warn(ctx, "GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" || cfg.StorageBucket != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID, StorageBucket: cfg.StorageBucket}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}

	log.Info(ctx, "Firebase initialized successfully")
	return &App{app: app, bucket: cfg.StorageBucket, log: log}, nil
}

func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}

func (a *App) Auth(ctx context.Context) (*AuthClient, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth client: %w", err)
	}
	return &AuthClient{client: client}, nil
}

func (a *App) Storage(ctx context.Context) (*StorageClient, error) {
	if a.bucket == "" {
		return nil, fmt.Errorf("FIREBASE_STORAGE_BUCKET not set")
	}
	client, err := a.app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &StorageClient{client: client, bucket: a.bucket, log: a.log}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename removes special characters from a path segment and limits its length.
func sanitizeFilename(filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filename, "_")

	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}

	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}

	return sanitized
}

// sanitizeObjectPath sanitizes every segment of a slash-separated object path.
func sanitizeObjectPath(objectPath string) string {
	segments := strings.Split(strings.Trim(objectPath, "/"), "/")
	for i, s := range segments {
		segments[i] = sanitizeFilename(s)
	}
	return strings.Join(segments, "/")
}
