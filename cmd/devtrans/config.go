package main

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"
)

const (
	defaultBaseURL = "http://localhost:8000"
	envBaseURL     = "DEVTRANS_BASE_URL"
	envToken       = "DEVTRANS_TOKEN"
)

type config struct {
	BaseURL string
	Token   string
}

func configPath() string {
	if runtime.GOOS == "windows" {
		return `C:\\DevTransClient\\config`
	}
	return "/opt/DevTransClient/config"
}

// loadConfig reads the config file, if any, then applies the environment.
func loadConfig(path string, getenv func(string) string) config {
	var cfg config
	if f, err := os.Open(path); err == nil {
		cfg = parseConfig(f)
		_ = f.Close()
	}

	if v := getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv(envToken); v != "" {
		cfg.Token = v
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg
}

// parseConfig reads key=value lines. Blank lines, # comments and unknown
// keys are skipped.
func parseConfig(r io.Reader) config {
	var cfg config

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "base_url":
			cfg.BaseURL = val
		case "token":
			cfg.Token = val
		}
	}

	return cfg
}
