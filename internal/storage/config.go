package storage

import "os"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicBaseURL, when set, is used to build stable public object URLs
	// instead of presigning (e.g. behind a CDN or a public-read bucket).
	PublicBaseURL string
}

// LoadMinIOConfig loads MinIO config from environment
func LoadMinIOConfig() *MinIOConfig {
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"
	return &MinIOConfig{
		Endpoint:      os.Getenv("MINIO_ENDPOINT"),
		AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:        useSSL,
		Bucket:        getEnv("MINIO_BUCKET", "rankboard"),
		PublicBaseURL: os.Getenv("MINIO_PUBLIC_BASE_URL"),
	}
}

func getEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
