package config

import (
	"fmt"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/bean-flow/internal/common"
	"github.com/Veraticus/bean-flow/internal/dedup"
)

// Configuration keys.
const (
	KeyDatabasePath   = "database.path"
	KeyRulesFile      = "rules.file"
	KeyWindowDays     = "import.window_days"
	KeyTolerance      = "import.tolerance"
	KeyDefaultAccount = "import.default_account"
	KeyAccounts       = "accounts"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Accounts       map[string]string
	DatabasePath   string
	RulesFile      string
	DefaultAccount string
	Dedup          dedup.Config
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	defaults := dedup.DefaultConfig()
	v.SetDefault(KeyDatabasePath, "~/.local/share/beanflow/ledger.db")
	v.SetDefault(KeyWindowDays, defaults.Window)
	v.SetDefault(KeyTolerance, defaults.Tolerance.String())
}

// LoadSettings reads settings from v, which already merges the config
// file, BEANFLOW_ environment variables and bound flags.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DatabasePath:   v.GetString(KeyDatabasePath),
		RulesFile:      v.GetString(KeyRulesFile),
		DefaultAccount: v.GetString(KeyDefaultAccount),
		Accounts:       v.GetStringMapString(KeyAccounts),
		Dedup:          dedup.DefaultConfig(),
	}

	if s.DatabasePath == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if s.DatabasePath != ":memory:" {
		s.DatabasePath = filepath.Clean(ExpandPath(s.DatabasePath))
	}
	if s.RulesFile != "" {
		s.RulesFile = ExpandPath(s.RulesFile)
	}

	if v.IsSet(KeyWindowDays) {
		window := v.GetInt(KeyWindowDays)
		if window < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyWindowDays)
		}
		s.Dedup.Window = window
	}
	if raw := v.GetString(KeyTolerance); raw != "" {
		tol, err := decimal.NewFromString(raw)
		if err != nil || tol.IsNegative() {
			return nil, fmt.Errorf("%w: %s %q", common.ErrInvalidConfig, KeyTolerance, raw)
		}
		s.Dedup.Tolerance = tol
	}

	return s, nil
}
