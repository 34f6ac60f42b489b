package config

import "os"

// parseEnv overlays configuration from environment variables, the way the
// server is configured in container deployments. Unset variables leave the
// current value untouched.
func parseEnv(config *Config) {
	setFromEnv(&config.EndpointAddr, "SERVER_ADDR")
	setFromEnv(&config.DatabaseDSN, "DATABASE_DSN")
	setFromEnv(&config.CronSecret, "CRON_SECRET")
	setFromEnv(&config.JWTSecret, "JWT_SECRET")
	setFromEnv(&config.S3AccessKey, "S3_ACCESS_KEY")
	setFromEnv(&config.S3SecretKey, "S3_SECRET_KEY")
	setFromEnv(&config.S3Bucket, "S3_BUCKET")
	setFromEnv(&config.S3Region, "S3_REGION")
	setFromEnv(&config.S3BaseEndpoint, "S3_ENDPOINT")
	setFromEnv(&config.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setFromEnv(&config.AIBaseURL, "AI_API_URL")
	setFromEnv(&config.AIAPIKey, "AI_API_KEY")
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
