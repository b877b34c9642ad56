// file: servs/s_macro/macro_cfg/config.go
package macro_cfg

import (
	"errors"
	"time"

	"github.com/rskv-p/srtmacro/pkg/x_db"
	"github.com/rskv-p/srtmacro/pkg/x_log"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_cfg"
)

type MacroConfig struct {
	HTTPAddress string `json:"http_address"` // control panel listen address

	Worker     WorkerConfig     `json:"worker"`
	Logs       LogsConfig       `json:"logs"`
	Automation AutomationConfig `json:"automation"`
	Notify     NotifyConfig     `json:"notify"`
	Auth       AuthConfig       `json:"auth"`
	Vault      VaultConfig      `json:"vault"`
	Defaults   FormDefaults     `json:"defaults"`

	DB     x_db.Config       `json:"db"`
	Bus    bus_cfg.BusConfig `json:"bus"`
	Logger x_log.Config      `json:"logger"`
}

type WorkerConfig struct {
	Command     []string      `json:"command"`      // worker argv; empty re-executes this binary as "worker"
	StartWait   time.Duration `json:"start_wait"`   // wait for the first status message
	JoinTimeout time.Duration `json:"join_timeout"` // join after terminating a failed worker
	StopTimeout time.Duration `json:"stop_timeout"` // join on explicit stop
}

type LogsConfig struct {
	BufferSize   int           `json:"buffer_size"`   // ring buffer lines
	QueueSize    int           `json:"queue_size"`    // per-subscriber mailbox
	PollInterval time.Duration `json:"poll_interval"` // pump receive timeout
	Heartbeat    time.Duration `json:"heartbeat"`     // SSE keepalive
}

type AutomationConfig struct {
	Command string        `json:"command"` // external script, placeholders like ${arrival}
	Dir     string        `json:"dir"`     // working directory for the script
	Demo    bool          `json:"demo"`    // simulated run when no command is set
	Step    time.Duration `json:"step"`    // demo poll interval
	Cycles  int           `json:"cycles"`  // demo search rounds before a seat is "found"
}

type NotifyConfig struct {
	Enabled bool          `json:"enabled"`
	Timeout time.Duration `json:"timeout"`
}

type AuthConfig struct {
	Enabled       bool          `json:"enabled"`
	JWTSecret     string        `json:"jwt_secret"`
	AdminPassword string        `json:"admin_password"` // seeded on first start
	TokenTTL      time.Duration `json:"token_ttl"`
}

type VaultConfig struct {
	Passphrase string `json:"passphrase"` // empty derives one from the machine id
}

// FormDefaults pre-fill the control page.
type FormDefaults struct {
	Arrival   string `json:"arrival"`
	Departure string `json:"departure"`
	Date      string `json:"standard_date"`
	Time      string `json:"standard_time"`
	Seats     string `json:"seat_types"`
	FromRow   int    `json:"from_train_number"`
	ToRow     int    `json:"to_train_number"`
}

// Built-in auth values. They only make sense with auth disabled.
const (
	DefaultJWTSecret     = "change-me"
	DefaultAdminPassword = "admin"
)

// ErrInsecureAuth is returned when auth is on but the JWT secret is unset
// or still the built-in one.
var ErrInsecureAuth = errors.New("macro_cfg: auth enabled with the default jwt_secret; set auth.jwt_secret")

var defaultConfig = MacroConfig{
	HTTPAddress: "0.0.0.0:8000",
	Worker: WorkerConfig{
		StartWait:   8 * time.Second,
		JoinTimeout: 3 * time.Second,
		StopTimeout: 5 * time.Second,
	},
	Logs: LogsConfig{
		BufferSize:   500,
		QueueSize:    1000,
		PollInterval: 500 * time.Millisecond,
		Heartbeat:    10 * time.Second,
	},
	Automation: AutomationConfig{
		Demo:   true,
		Step:   time.Second,
		Cycles: 30,
	},
	Notify: NotifyConfig{
		Enabled: true,
		Timeout: 5 * time.Second,
	},
	Auth: AuthConfig{
		Enabled:       false,
		JWTSecret:     DefaultJWTSecret,
		AdminPassword: DefaultAdminPassword,
		TokenTTL:      24 * time.Hour,
	},
	Defaults: FormDefaults{
		Arrival:   "동대구",
		Departure: "동탄",
		Date:      "20251024",
		Time:      "18",
		Seats:     "both",
		FromRow:   1,
		ToRow:     3,
	},
	DB:     x_db.DefaultConfig(),
	Bus:    bus_cfg.DefaultConfig(),
	Logger: x_log.DefaultConfig(),
}

// DefaultConfig returns a copy of the built-in configuration.
func DefaultConfig() MacroConfig {
	cfg := defaultConfig
	cfg.Worker.Command = append([]string(nil), defaultConfig.Worker.Command...)
	return cfg
}

// CheckAuth refuses an enabled auth section that signs tokens with a known
// secret. It reports whether the admin password is still the built-in one.
func (c MacroConfig) CheckAuth() (defaultAdmin bool, err error) {
	if !c.Auth.Enabled {
		return false, nil
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DefaultJWTSecret {
		return false, ErrInsecureAuth
	}
	return c.Auth.AdminPassword == DefaultAdminPassword, nil
}
