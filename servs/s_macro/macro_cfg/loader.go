// file: servs/s_macro/macro_cfg/loader.go
package macro_cfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/rskv-p/srtmacro/pkg/x_db"
)

const defaultPath = "./_data/cfg/macro.config.json"

// Load reads the configuration from path, MACRO_CFG or the default location,
// then applies environment overrides. A missing file yields the defaults.
func Load(path string) (MacroConfig, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = GetEnvStr("MACRO_CFG", defaultPath)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("macro_cfg: read %s: %w", path, err)
	default:
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("macro_cfg: parse %s: %w", path, err)
		}
		if err := Decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("macro_cfg: decode %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Decode applies a raw map onto out using json tag names. Duration fields
// accept "5s" strings or nanosecond numbers.
func Decode(raw map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(" "),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// applyEnv lets deployment override the most common keys.
func applyEnv(cfg *MacroConfig) {
	cfg.HTTPAddress = GetEnvStr("MACRO_HTTP_ADDR", cfg.HTTPAddress)

	cfg.Auth.Enabled = GetEnvBool("MACRO_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.JWTSecret = GetEnvStr("MACRO_JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.DB.Type = x_db.DbType(GetEnvStr("MACRO_DB_TYPE", string(cfg.DB.Type)))
	cfg.DB.DSN = GetEnvStr("MACRO_DB_DSN", cfg.DB.DSN)

	cfg.Vault.Passphrase = GetEnvStr("MACRO_VAULT_PASSPHRASE", cfg.Vault.Passphrase)
	cfg.Automation.Command = GetEnvStr("MACRO_AUTOMATION_CMD", cfg.Automation.Command)
	cfg.Worker.StartWait = GetEnvDuration("MACRO_START_WAIT", cfg.Worker.StartWait)
	cfg.Bus.Enabled = GetEnvBool("MACRO_BUS_ENABLED", cfg.Bus.Enabled)
	cfg.Bus.Port = GetEnvInt("MACRO_BUS_PORT", cfg.Bus.Port)

	cfg.Logger.Level = GetEnvStr("MACRO_LOG_LEVEL", cfg.Logger.Level)
}
