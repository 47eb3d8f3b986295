package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"app_addr":         "server.addr",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"idle_timeout":     "server.idle_timeout",
	"cors_origins":     "server.cors_origins",
	"rate_limit_rps":   "server.rate_limit_rps",
	"rate_limit_burst": "server.rate_limit_burst",
	"max_body_bytes":   "server.max_body_bytes",

	"db_dsn":           "database.dsn",
	"db_query_timeout": "database.query_timeout",

	"jwt_secret":    "auth.jwt_secret",
	"jwt_token_ttl": "auth.token_ttl",

	"log_level":  "log.level",
	"log_format": "log.format",

	"provider_user_agent":   "providers.user_agent",
	"provider_timeout":      "providers.timeout",
	"provider_rps":          "providers.rps",
	"provider_max_retries":  "providers.max_retries",
	"openlibrary_base_url":  "providers.openlibrary_url",
	"google_books_base_url": "providers.google_books_url",
	"google_books_api_key":  "providers.google_api_key",

	"recommend_default_limit":              "recommend.default_limit",
	"recommend_max_limit":                  "recommend.max_limit",
	"recommend_per_provider_limit":         "recommend.per_provider_limit",
	"recommend_catalog_pool_size":          "recommend.catalog_pool_size",
	"recommend_min_local_results":          "recommend.min_local_results",
	"recommend_max_per_author":             "recommend.max_per_author",
	"recommend_interleave_books":           "recommend.interleave_books",
	"recommend_interleave_per_book":        "recommend.interleave_per_book",
	"recommend_seed_terms":                 "recommend.seed_terms",
	"recommend_similarity_weight":          "recommend.similarity_weight",
	"recommend_popularity_weight":          "recommend.popularity_weight",
	"recommend_author_match_bonus":         "recommend.author_match_bonus",
	"recommend_title_overlap_weight":       "recommend.title_overlap_weight",
	"recommend_same_author_penalty":        "recommend.same_author_penalty",
	"recommend_cover_weight":               "recommend.cover_weight",
	"recommend_external_popularity_weight": "recommend.external_popularity_weight",
	"recommend_non_primary_penalty":        "recommend.non_primary_penalty",
}

// comma-separated in the environment
var sliceConfigPaths = []string{
	"server.cors_origins",
	"recommend.seed_terms",
}

// LoadEnvFiles reads .env files without overriding the existing environment.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds the configuration from defaults, file and environment.
func Load() (*Config, error) {
	LoadEnvFiles()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}
