package types

import "time"

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"caseflow"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"60"`
	MaxUploadBytes  int64  `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"` // 20 MiB

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Drafts
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	DraftTTL      time.Duration `envconfig:"DRAFT_TTL" default:"72h"`
	SpoolDir      string        `envconfig:"SPOOL_DIR"`

	// Blob storage: "s3" or "supabase"
	StorageBackend    string `envconfig:"STORAGE_BACKEND" default:"s3"`
	S3BucketName      string `envconfig:"S3_BUCKET_NAME"`
	SupabaseProjectID string `envconfig:"SUPABASE_PROJECT_ID"`
	SupabaseAPIKey    string `envconfig:"SUPABASE_API_KEY"`
	SupabaseBucket    string `envconfig:"SUPABASE_BUCKET" default:"case-documents"`

	// Requirements: "static" or "database"
	RequirementsSource   string        `envconfig:"REQUIREMENTS_SOURCE" default:"static"`
	RequirementsCacheTTL time.Duration `envconfig:"REQUIREMENTS_CACHE_TTL" default:"10m"`

	UploadConcurrency int           `envconfig:"UPLOAD_CONCURRENCY" default:"4"`
	UploadTimeout     time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"60s"`
}

const (
	StorageBackendS3       = "s3"
	StorageBackendSupabase = "supabase"

	RequirementsSourceStatic   = "static"
	RequirementsSourceDatabase = "database"
)
