package storage

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicURL is the base of object URLs handed to clients. Empty means
	// the endpoint itself.
	PublicURL string
}

// Enabled reports whether an endpoint was configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }
