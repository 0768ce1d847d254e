package commands

import (
	"os"
	"strconv"
)

const (
	envLogLevel         = "ADZIP_LOG_LEVEL"
	envMaxEntries       = "ADZIP_MAX_ENTRIES"
	envUnsorted         = "ADZIP_UNSORTED"
	envS3Endpoint       = "ADZIP_S3_ENDPOINT"
	envS3ForcePathStyle = "ADZIP_S3_FORCE_PATH_STYLE"
	envAWSRegion        = "AWS_REGION"
)

const defaultLogLevel = "info"

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
