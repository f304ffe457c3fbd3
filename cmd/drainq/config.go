package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const configDirName = ".drainq"

type config struct {
	ConnectionString string
	Queue            string
	DeadLetter       bool
	BatchSize        int
	ReceiveWait      time.Duration
	SessionWait      time.Duration
	AckConcurrency   int
	MetricsListen    string
	LogLevel         string
}

func bindConfig(v *viper.Viper) config {
	cfg := config{
		ConnectionString: strings.TrimSpace(v.GetString("connection-string")),
		Queue:            strings.TrimSpace(v.GetString("queue")),
		DeadLetter:       v.GetBool("dead-letter"),
		BatchSize:        v.GetInt("batch-size"),
		ReceiveWait:      v.GetDuration("receive-wait"),
		SessionWait:      v.GetDuration("session-wait"),
		AckConcurrency:   v.GetInt("ack-concurrency"),
		MetricsListen:    strings.TrimSpace(v.GetString("metrics-listen")),
		LogLevel:         strings.TrimSpace(v.GetString("log-level")),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// loadConfigFile reads the config file into v, followed by its local
// override (drainq.local.yaml next to drainq.yaml) when one exists. Without
// --config a missing file is not an error.
func loadConfigFile(v *viper.Viper) (string, error) {
	cfgPath := strings.TrimSpace(v.GetString("config"))
	explicit := cfgPath != ""

	if cfgPath == "" {
		cfgPath = findConfigFile()
	}
	if cfgPath == "" {
		return "", nil
	}

	expanded, err := expandPath(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config file %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", expanded)
	}

	v.SetConfigFile(expanded)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %q: %w", expanded, err)
	}

	if local := localOverride(expanded); local != "" {
		v.SetConfigFile(local)
		if err := v.MergeInConfig(); err != nil {
			return "", fmt.Errorf("read config file %q: %w", local, err)
		}
	}

	return expanded, nil
}

// selectProfile lifts the top-level section name over the rest of the
// configuration. It reports false when there is no such section.
func selectProfile(v *viper.Viper, name string) (bool, error) {
	section := v.Sub(name)
	if section == nil {
		return false, nil
	}
	if err := v.MergeConfigMap(section.AllSettings()); err != nil {
		return false, fmt.Errorf("select section %q: %w", name, err)
	}
	return true, nil
}

func findConfigFile() string {
	candidates := []string{filepath.Join(".", "drainq")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, configDirName, "config"))
	}

	for _, base := range candidates {
		for _, ext := range viper.SupportedExts {
			candidate := base + "." + ext
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

func localOverride(path string) string {
	ext := filepath.Ext(path)
	candidate := strings.TrimSuffix(path, ext) + ".local" + ext
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

// expandPath resolves a leading ~ to the home directory and makes p absolute.
func expandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
