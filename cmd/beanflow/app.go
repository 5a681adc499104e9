package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/common"
	"github.com/Veraticus/bean-flow/internal/config"
	"github.com/Veraticus/bean-flow/internal/storage"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	return settings, nil
}

// buildClassifier compiles the built-in tables with the user's rule file
// placed ahead of them.
func buildClassifier(settings *config.Settings) (*classify.Classifier, error) {
	tables := classify.DefaultTables()

	if settings.RulesFile != "" {
		rf, err := config.LoadRuleFile(settings.RulesFile)
		if err != nil {
			return nil, common.NewUserError("Could not load rule file", err)
		}
		if tables, err = rf.Apply(tables, classify.Resolvers()); err != nil {
			return nil, common.NewUserError("Invalid rule file "+settings.RulesFile, err)
		}
		slog.Debug("Loaded rule file", "path", settings.RulesFile, "rules", rf.Len())
	}

	c, err := classify.New(tables, classify.WithDefaultAccount(settings.DefaultAccount))
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	return c, nil
}

// openStore opens and migrates the ledger database.
func openStore(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, common.NewUserError("Could not open ledger database", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}
