package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/samber/lo"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Provider configuration
	ProvidersDir   string `long:"providers-dir" env:"PROVIDERS_DIR" default:"./providers" description:"Directory containing provider descriptor files"`
	WatchProviders bool   `long:"watch" env:"WATCH_PROVIDERS" description:"Reload provider descriptors when the directory changes"`
	QueryTimeout   int    `long:"query-timeout" env:"QUERY_TIMEOUT" default:"30" description:"Default provider call timeout in seconds"`

	// Application configuration
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"16" description:"Number of workers querying providers"`
	QueueSize     int    `long:"queue-size" env:"QUEUE_SIZE" default:"300" description:"Maximum number of queued provider queries"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SuggestedApps string `long:"suggested-apps" env:"SUGGESTED_APPS" description:"Comma separated desktop ids suggested as installable apps"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Card Comb/1.0" description:"User agent string for provider calls"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		ProvidersDir:   raw.ProvidersDir,
		WatchProviders: raw.WatchProviders,
		QueryTimeout:   time.Duration(raw.QueryTimeout) * time.Second,
		Port:           raw.Port,
		WorkerCount:    raw.WorkerCount,
		QueueSize:      raw.QueueSize,
		APIAccessKey:   raw.APIAccessKey,
		SuggestedApps:  splitList(raw.SuggestedApps),
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	positiveFields := map[string]int{
		"worker count": raw.WorkerCount,
	}
	for fieldName, fieldValue := range positiveFields {
		if fieldValue < 1 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	nonNegativeFields := map[string]int{
		"query timeout": raw.QueryTimeout,
		"queue size":    raw.QueueSize,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func splitList(value string) []string {
	parts := lo.Map(strings.Split(value, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Uniq(lo.Compact(parts))
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
