package x_log

//
// ---------- Config ----------

// Config controls the global logger outputs. It is embedded in the
// application config under "logger".
type Config struct {
	Level       string `json:"level"`        // debug, info, warn, error
	LogFile     string `json:"log_file"`     // rotated file path
	ToConsole   bool   `json:"to_console"`   // styled console output
	ToFile      bool   `json:"to_file"`      // write to LogFile
	ColoredFile bool   `json:"colored_file"` // console format inside the file
	Style       string `json:"style"`        // dark, light
	MaxSize     int    `json:"max_size"`     // MB
	MaxBackups  int    `json:"max_backups"`  // rotated files
	MaxAge      int    `json:"max_age"`      // days
	Compress    bool   `json:"compress"`     // gzip rotated files
}

//
// ---------- Defaults ----------

var defaultConfig = Config{
	Level:       "info",
	LogFile:     "_data/log/macro.log",
	ToConsole:   true,
	ToFile:      false,
	ColoredFile: false,
	Style:       "dark",
	MaxSize:     10,
	MaxBackups:  5,
	MaxAge:      7,
	Compress:    true,
}

// DefaultConfig returns a copy of the default logger config.
func DefaultConfig() Config {
	return defaultConfig
}

// applyDefaults fills missing config values from defaultConfig
func applyDefaults(cfg *Config) {
	if cfg.Level == "" {
		cfg.Level = defaultConfig.Level
	}
	if cfg.LogFile == "" {
		cfg.LogFile = defaultConfig.LogFile
	}
	if cfg.Style == "" {
		cfg.Style = defaultConfig.Style
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultConfig.MaxSize
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = defaultConfig.MaxBackups
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultConfig.MaxAge
	}
}
