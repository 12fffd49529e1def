package config

import (
	"encoding/json"
	"os"

	"github.com/evidencevault/vault/internal/flagx"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling.
type jsonConfig struct {
	BaseURL   string `json:"base_url"`
	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`
}

// parseJSON overlays Config with values loaded from a JSON file whose path
// comes from -c/-config, via flagx.JsonConfigFlags. Absent a path, it is a
// no-op.
func parseJSON(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.AppKey != "" {
		cfg.AppKey = jc.AppKey
	}
	if jc.AppSecret != "" {
		cfg.AppSecret = jc.AppSecret
	}
}
