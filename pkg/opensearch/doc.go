// Package opensearch wraps the official OpenSearch client with
// environment-driven configuration and a startup health check. The
// engine uses it for the durable security event archive; the archive is
// optional and disabled when no addresses are configured.
//
// # Usage
//
//	var cfg opensearch.Config
//	config.MustLoad(&cfg)
//
//	if cfg.Enabled() {
//		client, err := opensearch.New(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		sink := telemetry.NewArchiveSink(client, "security-events")
//	}
package opensearch
