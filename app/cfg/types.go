package cfg

import (
	"time"
)

type Cfg struct {
	// Provider configuration
	ProvidersDir   string
	WatchProviders bool
	QueryTimeout   time.Duration

	// Application configuration
	Port          string
	WorkerCount   int
	QueueSize     int
	APIAccessKey  string
	SuggestedApps []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
