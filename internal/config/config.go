package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the alarm engine, its transports and the
// ingestion pipeline.
type Config struct {
	// HTTPAddress is the listen address of the receive endpoint and alarm feed.
	HTTPAddress string `yaml:"http_addr"`
	// GRPCAddress is the listen address of the gRPC alarm feed. Clients dial it too.
	GRPCAddress string `yaml:"grpc_addr"`
	// SnapshotFile is the path of the JSON vessel snapshot store.
	SnapshotFile string `yaml:"snapshot_file"`
	// AlarmStore selects where fired alarms are appended.
	AlarmStore AlarmStore `yaml:"alarm_store"`
	// SourceURL is an optional remote receive endpoint to poll for ships.
	// The local snapshot store is polled when it is empty.
	SourceURL string `yaml:"source_url,omitempty"`
	// ForwardAlarmsURL is an optional receive endpoint fired alarms are posted to.
	ForwardAlarmsURL string `yaml:"forward_alarms_url,omitempty"`
	// PollInterval is the period between snapshot polls.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SweepInterval is the period between inactivity sweeps.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// Timeout bounds network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format"`
	// RateLimit throttles writes to the receive endpoint per client IP.
	RateLimit RateLimit `yaml:"rate_limit"`
	// Rules holds the alarm thresholds.
	Rules Rules `yaml:"rules"`
	// Geofence lists the GeoJSON layers of the named geometry sets.
	Geofence Geofence `yaml:"geofence"`
	// Ingest configures the AIS stream consumer.
	Ingest Ingest `yaml:"ingest"`
}

// AlarmStore selects the alarm sink implementation.
type AlarmStore struct {
	// Driver is "file" or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the JSON file or SQLite database path.
	Path string `yaml:"path"`
}

// RateLimit is a per-IP request budget.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Rules holds the thresholds of the alarm rules.
type Rules struct {
	// InactiveAfter is how long a vessel may stay silent.
	InactiveAfter time.Duration `yaml:"inactive_after"`
	// ProximityRadiusMeters is the distance to infrastructure that counts as near.
	ProximityRadiusMeters float64 `yaml:"proximity_radius_m"`
	// ProximityDwell is how long a vessel may stay near infrastructure.
	ProximityDwell time.Duration `yaml:"proximity_dwell"`
	// LowSpeedMinKnots is the lower bound of the loitering speed band.
	LowSpeedMinKnots float64 `yaml:"low_speed_min_kn"`
	// LowSpeedMaxKnots is the upper bound of the loitering speed band.
	LowSpeedMaxKnots float64 `yaml:"low_speed_max_kn"`
	// LowSpeedDwell is how long a vessel may loiter.
	LowSpeedDwell time.Duration `yaml:"low_speed_dwell"`
}

// Layer is a named geometry set loaded from GeoJSON files.
type Layer struct {
	// Files are GeoJSON documents merged into the set.
	Files []string `yaml:"files"`
	// BufferKM widens every geometry of the set.
	BufferKM float64 `yaml:"buffer_km"`
}

// Geofence holds the geometry sets used by the rules.
type Geofence struct {
	// Border is the zone set inside which silence is expected.
	Border Layer `yaml:"border"`
	// Infrastructure is the protected pipelines and cables.
	Infrastructure Layer `yaml:"infrastructure"`
}

// Ingest configures the AIS stream consumer.
type Ingest struct {
	// TokenURL is the OAuth2 token endpoint.
	TokenURL string `yaml:"token_url"`
	// StreamURL is the streaming AIS endpoint.
	StreamURL string `yaml:"stream_url"`
	// ClientID is the OAuth2 client identifier.
	ClientID string `yaml:"client_id"`
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string `yaml:"client_secret"`
	// Scope is the OAuth2 scope requested with the token.
	Scope string `yaml:"scope"`
	// CountryCodes are the flag states to keep (ISO 3166 alpha-2).
	CountryCodes []string `yaml:"country_codes"`
	// ShadowFleetFile is a JSON array of MMSIs that are always kept.
	ShadowFleetFile string `yaml:"shadow_fleet_file,omitempty"`
	// ReceiveURL posts ships to a remote receive endpoint instead of the local store.
	ReceiveURL string `yaml:"receive_url,omitempty"`
	// ReconnectInterval is the pause before a broken stream is reopened.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "maritime-alarm.yaml"

	// DefaultHTTPAddress is the default listen address of the HTTP transport.
	DefaultHTTPAddress = ":8080"

	// DefaultGRPCAddress is the default listen address of the gRPC feed.
	DefaultGRPCAddress = "127.0.0.1:50051"

	// DefaultSnapshotFilename is the default vessel snapshot store.
	DefaultSnapshotFilename = "ships.json"

	// DefaultAlarmsFilename is the default JSON alarm store.
	DefaultAlarmsFilename = "alarms.json"

	// DefaultAlarmsDatabase is the default SQLite alarm store.
	DefaultAlarmsDatabase = "alarms.db"

	// DefaultPollInterval is how often the engine polls for ships.
	DefaultPollInterval = 10 * time.Second

	// DefaultSweepInterval is how often the engine checks for silent vessels.
	DefaultSweepInterval = 60 * time.Second

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is used when log_level is empty.
	DefaultLogLevel = "info"

	// DefaultLogFormat is used when log_format is empty.
	DefaultLogFormat = "console"

	// DefaultRateLimitRequests is the number of writes allowed per window.
	DefaultRateLimitRequests = 120

	// DefaultRateLimitWindow is the rate limit window.
	DefaultRateLimitWindow = time.Minute

	// DefaultInactiveAfter is the silence threshold.
	DefaultInactiveAfter = time.Hour

	// DefaultProximityRadiusMeters is one nautical mile.
	DefaultProximityRadiusMeters = 1852.0

	// DefaultProximityDwell is the dwell threshold near infrastructure.
	DefaultProximityDwell = time.Hour

	// DefaultLowSpeedMinKnots is the lower loitering bound.
	DefaultLowSpeedMinKnots = 2.0

	// DefaultLowSpeedMaxKnots is the upper loitering bound.
	DefaultLowSpeedMaxKnots = 5.0

	// DefaultLowSpeedDwell is the loitering threshold.
	DefaultLowSpeedDwell = 30 * time.Minute

	// DefaultBorderBufferKM is the buffer around the border zones.
	DefaultBorderBufferKM = 10.0

	// DefaultReconnectInterval is the pause before the AIS stream is reopened.
	DefaultReconnectInterval = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for an unsupported alarm store driver.
	errUnknownDriver = errors.New("unknown alarm store driver")
	// errUnknownLogFormat is returned for an unsupported log format.
	errUnknownLogFormat = errors.New("unknown log format")
	// errInvalidRules is returned for inconsistent thresholds.
	errInvalidRules = errors.New("invalid rules")
	// errIngestIncomplete is returned when the stream consumer lacks credentials or endpoints.
	errIngestIncomplete = errors.New("ingest settings incomplete")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// A zero Config only fails validation on programmer error.
	if err := Validate(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// Load reads configuration from the provided path and validates it.
// When no path is given and the default file does not exist, defaults are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold ingest credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.HTTPAddress == "" {
		settings.HTTPAddress = DefaultHTTPAddress
	}

	if settings.GRPCAddress == "" {
		settings.GRPCAddress = DefaultGRPCAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
		return fmt.Errorf("invalid HTTP address: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.GRPCAddress); err != nil {
		return fmt.Errorf("invalid gRPC address: %w", err)
	}

	if settings.SnapshotFile == "" {
		settings.SnapshotFile = DefaultSnapshotFilename
	}

	if err := validateAlarmStore(&settings.AlarmStore); err != nil {
		return err
	}

	for name, raw := range map[string]string{
		"source":         settings.SourceURL,
		"forward alarms": settings.ForwardAlarmsURL,
	} {
		if err := validateOptionalURL(raw); err != nil {
			return fmt.Errorf("invalid %s URL: %w", name, err)
		}
	}

	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}

	if settings.SweepInterval <= 0 {
		settings.SweepInterval = DefaultSweepInterval
	}

	// Set default timeout if not specified.
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	switch settings.LogFormat {
	case "":
		settings.LogFormat = DefaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("%w: %q", errUnknownLogFormat, settings.LogFormat)
	}

	if settings.RateLimit.Requests <= 0 {
		settings.RateLimit.Requests = DefaultRateLimitRequests
	}

	if settings.RateLimit.Window <= 0 {
		settings.RateLimit.Window = DefaultRateLimitWindow
	}

	if err := validateRules(&settings.Rules); err != nil {
		return err
	}

	if settings.Geofence.Border.BufferKM <= 0 {
		settings.Geofence.Border.BufferKM = DefaultBorderBufferKM
	}

	if settings.Geofence.Infrastructure.BufferKM < 0 {
		return fmt.Errorf("%w: negative infrastructure buffer", errInvalidRules)
	}

	if settings.Ingest.ReconnectInterval <= 0 {
		settings.Ingest.ReconnectInterval = DefaultReconnectInterval
	}

	return nil
}

// Validate checks the settings required to open the AIS stream.
// It is only called by the ingest command.
func (i *Ingest) Validate() error {
	switch {
	case i.TokenURL == "", i.StreamURL == "":
		return fmt.Errorf("%w: token_url and stream_url are required", errIngestIncomplete)
	case i.ClientID == "", i.ClientSecret == "":
		return fmt.Errorf("%w: client_id and client_secret are required", errIngestIncomplete)
	}

	for _, raw := range []string{i.TokenURL, i.StreamURL, i.ReceiveURL} {
		if err := validateOptionalURL(raw); err != nil {
			return fmt.Errorf("invalid ingest URL: %w", err)
		}
	}

	return nil
}

func validateAlarmStore(store *AlarmStore) error {
	switch store.Driver {
	case "", DriverFile:
		store.Driver = DriverFile

		if store.Path == "" {
			store.Path = DefaultAlarmsFilename
		}
	case DriverSQLite:
		if store.Path == "" {
			store.Path = DefaultAlarmsDatabase
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, store.Driver)
	}

	return nil
}

func validateRules(rules *Rules) error {
	if rules.InactiveAfter <= 0 {
		rules.InactiveAfter = DefaultInactiveAfter
	}

	if rules.ProximityRadiusMeters <= 0 {
		rules.ProximityRadiusMeters = DefaultProximityRadiusMeters
	}

	if rules.ProximityDwell <= 0 {
		rules.ProximityDwell = DefaultProximityDwell
	}

	if rules.LowSpeedMinKnots == 0 && rules.LowSpeedMaxKnots == 0 {
		rules.LowSpeedMinKnots = DefaultLowSpeedMinKnots
		rules.LowSpeedMaxKnots = DefaultLowSpeedMaxKnots
	}

	if rules.LowSpeedMinKnots < 0 || rules.LowSpeedMinKnots > rules.LowSpeedMaxKnots {
		return fmt.Errorf("%w: low speed band [%v, %v]", errInvalidRules, rules.LowSpeedMinKnots, rules.LowSpeedMaxKnots)
	}

	if rules.LowSpeedDwell <= 0 {
		rules.LowSpeedDwell = DefaultLowSpeedDwell
	}

	return nil
}

func validateOptionalURL(raw string) error {
	if raw == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(raw); err != nil {
		return err
	}

	return nil
}
