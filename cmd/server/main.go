package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syncwatch/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 20,
	}
	syncIntervalMs = configVar[int]{
		envKey:       "SERVER_SYNC_INTERVAL_MS",
		flagKey:      "sync-interval-ms",
		defaultValue: 100,
	}
	driftInSync = configVar[float64]{
		envKey:       "SERVER_DRIFT_IN_SYNC",
		flagKey:      "drift-in-sync",
		defaultValue: 0.1,
	}
	driftHardSeek = configVar[float64]{
		envKey:       "SERVER_DRIFT_HARD_SEEK",
		flagKey:      "drift-hard-seek",
		defaultValue: 0.3,
	}
	driftRateNudge = configVar[float64]{
		envKey:       "SERVER_DRIFT_RATE_NUDGE",
		flagKey:      "drift-rate-nudge",
		defaultValue: 0.05,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in a room")
	pflag.Int(syncIntervalMs.flagKey, syncIntervalMs.defaultValue, "Playback sync broadcast interval in milliseconds")
	pflag.Float64(driftInSync.flagKey, driftInSync.defaultValue, "Drift below which clients apply no correction, seconds")
	pflag.Float64(driftHardSeek.flagKey, driftHardSeek.defaultValue, "Drift at which clients hard-seek, seconds")
	pflag.Float64(driftRateNudge.flagKey, driftRateNudge.defaultValue, "Fractional rate offset for gradual drift correction")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(syncIntervalMs.flagKey, syncIntervalMs.envKey)
	viper.BindEnv(driftInSync.flagKey, driftInSync.envKey)
	viper.BindEnv(driftHardSeek.flagKey, driftHardSeek.envKey)
	viper.BindEnv(driftRateNudge.flagKey, driftRateNudge.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(syncIntervalMs.flagKey, syncIntervalMs.defaultValue)
	viper.SetDefault(driftInSync.flagKey, driftInSync.defaultValue)
	viper.SetDefault(driftHardSeek.flagKey, driftHardSeek.defaultValue)
	viper.SetDefault(driftRateNudge.flagKey, driftRateNudge.defaultValue)

	return &app.AppConfig{
		Host:           viper.GetString(host.flagKey),
		Port:           viper.GetInt(port.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		MembersLimit:   viper.GetInt(membersLimit.flagKey),
		SyncIntervalMs: viper.GetInt(syncIntervalMs.flagKey),
		DriftInSync:    viper.GetFloat64(driftInSync.flagKey),
		DriftHardSeek:  viper.GetFloat64(driftHardSeek.flagKey),
		DriftRateNudge: viper.GetFloat64(driftRateNudge.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
