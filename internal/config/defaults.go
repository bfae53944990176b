package config

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot:      "~/.local/share/ingot",
			DBPath:        "~/.local/share/ingot/ingot.db",
			ProceduresDir: "~/.local/share/ingot/procedures",
		},
		Sources: Sources{
			Systems: []string{"crm", "erp", "api", "db"},
		},
		Workflow: Workflow{
			ArtifactWaitTimeoutSec: 30,
			ArtifactPollIntervalMS: 250,
			ManifestRetryAttempts:  6,
			ManifestRetryDelayMS:   80,
			ExecutorTimeoutSec:     600,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
