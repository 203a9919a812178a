package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultTokenAlgorithm     = "HS256"
	defaultAccessTTL          = 60 * time.Minute
	defaultRefreshTTL         = 7 * 24 * time.Hour
	defaultHashAlgorithm      = "argon2id"
	defaultArgonMemoryKiB     = 64 * 1024
	defaultArgonIterations    = 3
	defaultArgonParallelism   = 2
	defaultArgonSaltLength    = 16
	defaultArgonKeyLength     = 32
	defaultBcryptCost         = 12
	defaultPageLimit          = 100
	defaultMaxPageLimit       = 100
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Migration MigrationConfig `json:"migration" yaml:"migration"`

	Token TokenConfig `json:"token" yaml:"token"`

	Hasher HasherConfig `json:"hasher" yaml:"hasher"`

	Pagination PaginationConfig `json:"pagination" yaml:"pagination"`

	Auth AuthConfig `json:"auth" yaml:"auth"`
}

type HTTPConfig struct {
	Port               int    `json:"port" yaml:"port"`
	MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
	Timeouts           struct {
		ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
		ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
		WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
		IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	} `json:"timeouts" yaml:"timeouts"`
	CORS struct {
		AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"`
	} `json:"cors" yaml:"cors"`
}

// MigrationConfig controls the embedded goose migrations.
type MigrationConfig struct {
	AutoApply bool `json:"autoApply" yaml:"autoApply"`
}

// TokenConfig defines how bearer tokens are signed and validated.
type TokenConfig struct {
	Secret          string        `json:"secret" yaml:"secret"`
	Algorithm       string        `json:"algorithm" yaml:"algorithm"`
	Issuer          string        `json:"issuer" yaml:"issuer"`
	Audience        string        `json:"audience" yaml:"audience"`
	EnforceIssuer   bool          `json:"enforceIssuer" yaml:"enforceIssuer"`
	EnforceAudience bool          `json:"enforceAudience" yaml:"enforceAudience"`
	AccessTTL       time.Duration `json:"accessTTL" yaml:"accessTTL"`
	RefreshTTL      time.Duration `json:"refreshTTL" yaml:"refreshTTL"`
}

// HasherConfig defines the password hashing algorithm and its cost parameters.
type HasherConfig struct {
	// Algorithm used for new hashes: "argon2id" or "bcrypt".
	Algorithm   string `json:"algorithm" yaml:"algorithm"`
	Memory      uint32 `json:"memory" yaml:"memory"` // KiB
	Iterations  uint32 `json:"iterations" yaml:"iterations"`
	Parallelism uint8  `json:"parallelism" yaml:"parallelism"`
	SaltLength  uint32 `json:"saltLength" yaml:"saltLength"`
	KeyLength   uint32 `json:"keyLength" yaml:"keyLength"`
	BcryptCost  int    `json:"bcryptCost" yaml:"bcryptCost"`
	// Workers bounds how many hash computations run at once.
	Workers int `json:"workers" yaml:"workers"`
}

type PaginationConfig struct {
	DefaultLimit int `json:"defaultLimit" yaml:"defaultLimit"`
	MaxLimit     int `json:"maxLimit" yaml:"maxLimit"`
}

// AuthConfig defines authorization policy knobs.
type AuthConfig struct {
	ListRequiresAuth bool `json:"listRequiresAuth" yaml:"listRequiresAuth"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv reads <currEnv>.yaml from the first search path that has it,
// then overlays environment variables. Env keys are matched against the keys
// already loaded from the file so TOKEN_ACCESSTTL lands on token.accessTTL.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	configFile, err := locateConfigFile(currEnv+".yaml", configPath)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	fromFile := k.Raw()
	overlay := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			return canonicalizeEnvKey(key, fromFile), value
		},
	})
	if err := k.Load(overlay, nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := new(T)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{DecoderConfig: decoderConfig(cfg)}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// locateConfigFile checks the working directory first, then each extra path
// relative to it.
func locateConfigFile(name string, extra []string) (string, error) {
	dirs := []string{defaultPath}
	if len(extra) > 0 {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "os.Getwd")
		}
		for _, dir := range extra {
			dirs = append(dirs, filepath.Join(wd, dir))
		}
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errors.Errorf("config file %s not found in any search path", name)
}

func decoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		MatchName: strings.EqualFold,
	}
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// applyDefaults fills every zero value the service cannot run without.
// The token secret is deliberately left alone: its absence must fail startup.
func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if cfg.Token.Algorithm == "" {
		cfg.Token.Algorithm = defaultTokenAlgorithm
	}
	if cfg.Token.AccessTTL <= 0 {
		cfg.Token.AccessTTL = defaultAccessTTL
	}
	if cfg.Token.RefreshTTL <= 0 {
		cfg.Token.RefreshTTL = defaultRefreshTTL
	}

	h := &cfg.Hasher
	if h.Algorithm == "" {
		h.Algorithm = defaultHashAlgorithm
	}
	if h.Memory == 0 {
		h.Memory = defaultArgonMemoryKiB
	}
	if h.Iterations == 0 {
		h.Iterations = defaultArgonIterations
	}
	if h.Parallelism == 0 {
		h.Parallelism = defaultArgonParallelism
	}
	if h.SaltLength == 0 {
		h.SaltLength = defaultArgonSaltLength
	}
	if h.KeyLength == 0 {
		h.KeyLength = defaultArgonKeyLength
	}
	if h.BcryptCost == 0 {
		h.BcryptCost = defaultBcryptCost
	}
	if h.Workers <= 0 {
		h.Workers = runtime.NumCPU()
	}

	if cfg.Pagination.MaxLimit <= 0 {
		cfg.Pagination.MaxLimit = defaultMaxPageLimit
	}
	if cfg.Pagination.DefaultLimit <= 0 {
		cfg.Pagination.DefaultLimit = defaultPageLimit
	}
	if cfg.Pagination.DefaultLimit > cfg.Pagination.MaxLimit {
		cfg.Pagination.DefaultLimit = cfg.Pagination.MaxLimit
	}
}

func canonicalizeEnvKey(rawKey string, loaded map[string]any) string {
	var path []string
	level := loaded

	for _, part := range strings.Split(strings.ToLower(rawKey), "_") {
		if part == "" {
			continue
		}

		key, child := matchLoadedKey(level, part)
		path = append(path, key)
		level = child
	}

	return strings.Join(path, ".")
}

// matchLoadedKey returns the loaded key equal to part once both are folded to
// lower-case alphanumerics, along with its nested map. Unknown parts are
// returned unchanged with a nil map so nothing below them matches.
func matchLoadedKey(level map[string]any, part string) (string, map[string]any) {
	want := normalizeToken(part)
	for key, value := range level {
		if normalizeToken(key) == want {
			child, _ := value.(map[string]any)

			return key, child
		}
	}

	return part, nil
}

func normalizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}

		return -1
	}, s)
}

// buildReplicasFromEnv reads POSTGRES_REPLICAS_{index}_{HOST,PORT,USERNAME,PASSWORD}.
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
