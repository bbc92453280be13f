package types

// LogLevel is the logging verbosity: none, low or high.
type LogLevel string

const (
	LogNone LogLevel = "none"
	LogLow  LogLevel = "low"
	LogHigh LogLevel = "high"
)

// AppConfig represents the application configuration loaded from the per-user config file
type AppConfig struct {
	Listen         string   `json:"listen" yaml:"listen"`
	StagingDir     string   `json:"stagingDir" yaml:"stagingDir"`
	KeepFiles      bool     `json:"keepFiles" yaml:"keepFiles"`
	LogLevel       LogLevel `json:"logLevel" yaml:"logLevel"`
	LogFile        string   `json:"logFile" yaml:"logFile,omitempty"`
	OutputDir      string   `json:"outputDir" yaml:"outputDir,omitempty"`
	StatusAddr     string   `json:"statusAddr" yaml:"statusAddr,omitempty"`
	NotifySocket   string   `json:"notifySocket" yaml:"notifySocket,omitempty"`
	MaxConnections int      `json:"maxConnections" yaml:"maxConnections"`
	AcceptRate     int      `json:"acceptRate" yaml:"acceptRate"` // new connections per second, 0 = unlimited
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log             string
	UseConfigPath   string
	UseListen       string
	UseStdio        bool // serve a single session over stdin/stdout (inetd style)
	UseStagingDir   string
	UseKeepFiles    bool
	UseOutputDir    string
	UseStatusAddr   string
	UseLogFile      string
	UseNotifySocket string
	UseAcceptRate   string   // empty leaves the configured rate alone
	SendTo          string   // device mode: push the given object files to this address
	SendFiles       []string // positional arguments in device mode
	MaxConnections  int
}
