package opensearch

// Config holds OpenSearch connection parameters. The event archive is
// an optional destination: with no addresses configured the engine runs
// without it.
type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES"` // Addresses of the cluster nodes. Empty disables the archive.
	Username     string   `env:"OPENSEARCH_USERNAME"`
	Password     string   `env:"OPENSEARCH_PASSWORD"`
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
}

// Enabled reports whether a cluster is configured.
func (c Config) Enabled() bool {
	return len(c.Addresses) > 0
}
