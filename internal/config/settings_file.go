package config

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/cesargomez89/catalogd/internal/domain"
	"github.com/cesargomez89/catalogd/internal/store"
)

// settingKeys lists every Setting row config.yaml is allowed to seed,
// alongside its declared type.
var settingKeys = map[string]domain.SettingType{
	domain.SettingSchedulerSyncIntervalHours: domain.SettingTypeInt,
	domain.SettingSchedulerJobCleanupDays:    domain.SettingTypeInt,
	domain.SettingSchedulerTokenCleanupDays:  domain.SettingTypeInt,
	domain.SettingAuthRegistrationEnabled:    domain.SettingTypeBool,
	domain.SettingDownloadMaxConcurrent:      domain.SettingTypeInt,
	domain.SettingDownloadAudioQuality:       domain.SettingTypeString,
	domain.SettingFeaturesLyricsEnabled:      domain.SettingTypeBool,
	domain.SettingFeaturesChartsEnabled:      domain.SettingTypeBool,
}

// ApplySettingsFile reads an optional config.yaml under configRoot and
// writes any Setting row it names, letting an operator check tuning
// values into a file instead of re-issuing API calls after every
// restart. Its absence is not an error: this layers under, and never
// replaces, the environment-variable configuration Load already performs
// for everything in the Config struct itself.
func ApplySettingsFile(db *store.DB, configRoot string, logger *slog.Logger) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configRoot)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			logger.Warn("config.yaml present but unreadable, ignoring", "error", err)
		}
		return
	}

	for key, typ := range settingKeys {
		if !v.IsSet(key) {
			continue
		}
		if err := db.SetSetting(key, typ, settingValue(typ, v, key)); err != nil {
			logger.Warn("config.yaml: failed to apply setting", "key", key, "error", err)
			continue
		}
		logger.Info("config.yaml: applied setting override", "key", key)
	}
}

func settingValue(typ domain.SettingType, v *viper.Viper, key string) interface{} {
	switch typ {
	case domain.SettingTypeInt:
		return v.GetInt(key)
	case domain.SettingTypeBool:
		return v.GetBool(key)
	default:
		return v.GetString(key)
	}
}
