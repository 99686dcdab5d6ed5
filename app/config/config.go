package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Port string `yaml:"port" json:"port"`
	Env  string `yaml:"env" json:"env"`
}

type MongoCfg struct {
	URI      string `yaml:"uri" json:"uri"`
	Database string `yaml:"database" json:"database"`
}

type RedisCfg struct {
	URL      string `yaml:"url" json:"url"`
	TTLHours int    `yaml:"ttl_hours" json:"ttl_hours"`
}

type SearchCfg struct {
	Host         string `yaml:"host" json:"host"`
	APIKey       string `yaml:"api_key" json:"api_key"`
	IndexName    string `yaml:"index_name" json:"index_name"`
	TimeoutSec   int    `yaml:"timeout_sec" json:"timeout_sec"`
	MemoSize     int    `yaml:"memo_size" json:"memo_size"`
	UseLibpostal bool   `yaml:"use_libpostal" json:"use_libpostal"`
}

type ResolverCfg struct {
	OrgMatchScore     float64 `yaml:"org_match_score" json:"org_match_score"`
	PropertyChunkSize int     `yaml:"property_chunk_size" json:"property_chunk_size"`
}

type Cfg struct {
	App      AppCfg      `yaml:"app" json:"app"`
	Mongo    MongoCfg    `yaml:"mongo" json:"mongo"`
	Redis    RedisCfg    `yaml:"redis" json:"redis"`
	Search   SearchCfg   `yaml:"search" json:"search"`
	Resolver ResolverCfg `yaml:"resolver" json:"resolver"`
}

var C Cfg

// Load reads the yaml config file and applies RESOLVER_* env overrides
// through viper (e.g. RESOLVER_MONGO_URI, RESOLVER_SEARCH_HOST).
func Load(path string) error {
	setDefaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &C); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	v := viper.New()
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrideString(v, "app.port", &C.App.Port)
	overrideString(v, "app.env", &C.App.Env)
	overrideString(v, "mongo.uri", &C.Mongo.URI)
	overrideString(v, "mongo.database", &C.Mongo.Database)
	overrideString(v, "redis.url", &C.Redis.URL)
	overrideString(v, "search.host", &C.Search.Host)
	overrideString(v, "search.api_key", &C.Search.APIKey)
	overrideString(v, "search.index_name", &C.Search.IndexName)
	if v.IsSet("search.use_libpostal") {
		C.Search.UseLibpostal = v.GetBool("search.use_libpostal")
	}
	return nil
}

func setDefaults() {
	C = Cfg{
		App:   AppCfg{Port: "8080", Env: "development"},
		Mongo: MongoCfg{URI: "mongodb://localhost:27017", Database: "billing_resolver"},
		Redis: RedisCfg{TTLHours: 24},
		Search: SearchCfg{
			Host:       "http://localhost:7700",
			IndexName:  "addresses",
			TimeoutSec: 30,
			MemoSize:   10000,
		},
		Resolver: ResolverCfg{OrgMatchScore: 1, PropertyChunkSize: 100},
	}
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if val := v.GetString(key); val != "" {
		*dst = val
	}
}

// TTL returns the shared cache TTL as a duration.
func (c RedisCfg) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// Timeout returns the search client timeout as a duration.
func (c SearchCfg) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}
