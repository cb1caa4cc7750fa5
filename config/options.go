package config

const (
	defaultLogFile              = "shlf-sync.log"
	defaultLogLevel             = "info"
	defaultLogFileMaxSize       = 20
	defaultLogFileMaxBackups    = 3
	defaultLogFileMaxAge        = 28
	defaultLogCompress          = false
	defaultPort                 = 8470
	defaultHost                 = "0.0.0.0"
	defaultData                 = "/var/opt/shlf-sync"
	defaultDeviceName           = "Phone"
	defaultPeerURL              = ""
	defaultPeerSecret           = ""
	defaultPeerTimeoutSeconds   = 5
	defaultSyncWorkerCount      = 4
	defaultPageSyncDebounceMs   = 250
	defaultPardonWindowHours    = 48
	defaultPardonCooldownHours  = 168
	defaultStreakCheckInterval  = 30
	defaultUnknownPageCeiling   = 10000
)

var Opts *Options

// Why use mapstructure instead of json: viper unmarshals through mapstructure,
// json field tags are not recognized.
// see: https://pkg.go.dev/github.com/mitchellh/mapstructure#hdr-Field_Tags
type Options struct {
	// LogFile is the file to write logs to
	LogFile string `mapstructure:"log_file"`
	// LogLevel is the level of logging to show
	LogLevel string `mapstructure:"log_level"`
	// LogFileMaxSize is the maximum size of the log file before it is rotated
	LogFileMaxSize int `mapstructure:"log_file_max_size"`
	// LogFileMaxBackups is the maximum number of log files to keep
	LogFileMaxBackups int `mapstructure:"log_file_max_backups"`
	// LogFileMaxAge is the maximum number of days to keep a log file
	LogFileMaxAge int `mapstructure:"log_file_max_age"`
	// LogCompress is whether or not to compress the log files
	LogCompress bool `mapstructure:"log_compress"`
	// DSN is the path of the sqlite database
	DSN string `mapstructure:"dsn_uri"`
	// Port is the port to listen on
	Port int `mapstructure:"port"`
	// Host is the host to listen on
	Host string `mapstructure:"host"`
	// Data is the directory to store data
	Data string `mapstructure:"data"`
	// DeviceName tags locally originated mutations, "Phone" or "Watch"
	DeviceName string `mapstructure:"device_name"`
	// PeerURL is the base URL of the paired device's daemon. Empty means unpaired.
	PeerURL string `mapstructure:"peer_url"`
	// PeerSecret is the shared pairing secret used to sign peer tokens
	PeerSecret string `mapstructure:"peer_secret"`
	// PeerTimeout is the per-request timeout for peer sends, in seconds
	PeerTimeout int `mapstructure:"peer_timeout"`
	// SyncWorkerCount is the number of outbound send workers
	SyncWorkerCount int `mapstructure:"sync_worker_count"`
	// PageSyncDebounce coalesces page adjustments for this many milliseconds
	// before a snapshot is sent to the peer
	PageSyncDebounce int `mapstructure:"page_sync_debounce"`
	// PardonWindowHours is how long after a missed day ends a pardon stays available
	PardonWindowHours int `mapstructure:"pardon_window_hours"`
	// PardonCooldownHours is the cooldown after a pardon is used
	PardonCooldownHours int `mapstructure:"pardon_cooldown_hours"`
	// StreakCheckInterval is the background streak reconciliation period, in
	// minutes. Zero disables the ticker and leaves break detection pull-based.
	StreakCheckInterval int `mapstructure:"streak_check_interval"`
	// UnknownPageCeiling bounds page adjustments for books without a page count
	UnknownPageCeiling int `mapstructure:"unknown_page_ceiling"`
}

func GetDefaultOptions() *Options {
	Opts = &Options{
		LogFile:             defaultLogFile,
		LogLevel:            defaultLogLevel,
		LogFileMaxSize:      defaultLogFileMaxSize,
		LogFileMaxBackups:   defaultLogFileMaxBackups,
		LogFileMaxAge:       defaultLogFileMaxAge,
		LogCompress:         defaultLogCompress,
		Port:                defaultPort,
		Host:                defaultHost,
		Data:                defaultData,
		DeviceName:          defaultDeviceName,
		PeerURL:             defaultPeerURL,
		PeerSecret:          defaultPeerSecret,
		PeerTimeout:         defaultPeerTimeoutSeconds,
		SyncWorkerCount:     defaultSyncWorkerCount,
		PageSyncDebounce:    defaultPageSyncDebounceMs,
		PardonWindowHours:   defaultPardonWindowHours,
		PardonCooldownHours: defaultPardonCooldownHours,
		StreakCheckInterval: defaultStreakCheckInterval,
		UnknownPageCeiling:  defaultUnknownPageCeiling,
	}
	return Opts
}
