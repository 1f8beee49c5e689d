package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the shopsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	CORS      CORSConfig      `yaml:"cors"`
	Backend   BackendConfig   `yaml:"backend"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json or console (default: json in prod)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CORSConfig holds browser access settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAgeSec      int      `yaml:"max_age_sec"`
}

// BackendConfig selects and configures the vector database.
type BackendConfig struct {
	Driver           string         `yaml:"driver"` // qdrant, pgvector (default: qdrant)
	Collection       string         `yaml:"collection"`
	ReadinessTimeout int            `yaml:"readiness_timeout_sec"`
	Qdrant           QdrantConfig   `yaml:"qdrant"`
	Postgres         PostgresConfig `yaml:"postgres"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// PostgresConfig holds PostgreSQL + pgvector settings.
type PostgresConfig struct {
	DSN       string `yaml:"dsn"`
	SparseDim int    `yaml:"sparse_dim"`
	MaxConns  int32  `yaml:"max_conns"`
}

// SearchConfig holds hybrid query planning settings.
type SearchConfig struct {
	PrefetchLimit int    `yaml:"prefetch_limit"`
	ResultLimit   int    `yaml:"result_limit"`
	MaxLimit      int    `yaml:"max_limit"`
	Fusion        string `yaml:"fusion"` // rrf, dbsf (default: rrf)
	RRFK          int    `yaml:"rrf_k"`
	DenseVector   string `yaml:"dense_vector"`
	SparseVector  string `yaml:"sparse_vector"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding settings for both branches.
type EmbeddingConfig struct {
	TimeoutMs int          `yaml:"timeout_ms"`
	Dense     DenseConfig  `yaml:"dense"`
	Sparse    SparseConfig `yaml:"sparse"`
}

// DenseConfig holds the OpenAI-compatible dense provider settings.
type DenseConfig struct {
	Provider         string       `yaml:"provider"`
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	SendDimensions   bool         `yaml:"send_dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	Budget           BudgetConfig `yaml:"budget"`
}

// SparseConfig holds the sparse provider settings.
type SparseConfig struct {
	Provider  string `yaml:"provider"` // tei, lexical (default: tei)
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	VocabSize int    `yaml:"vocab_size"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// RedisConfig holds the budget store connection. Empty addrs keep budgets in memory.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	LoadDotEnv()
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadDotEnv loads .env without overriding variables that are already set.
func LoadDotEnv() {
	if fileExists(".env") {
		_ = godotenv.Load(".env")
	}
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = "qdrant"
	}
	if c.Backend.Collection == "" {
		c.Backend.Collection = "products"
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 10
	}
	if c.Backend.Qdrant.Port <= 0 {
		c.Backend.Qdrant.Port = 6334
	}
	if c.Search.PrefetchLimit <= 0 {
		c.Search.PrefetchLimit = 50
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.ResultLimit <= 0 {
		c.Search.ResultLimit = min(50, c.Search.MaxLimit)
	}
	if c.Search.Fusion == "" {
		c.Search.Fusion = "rrf"
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
	if c.Search.DenseVector == "" {
		c.Search.DenseVector = "dense"
	}
	if c.Search.SparseVector == "" {
		c.Search.SparseVector = "sparse"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 15
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 5000
	}
	if c.Embedding.Dense.Provider == "" {
		c.Embedding.Dense.Provider = "tei"
	}
	if c.Embedding.Dense.Model == "" {
		c.Embedding.Dense.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Embedding.Dense.Dimensions <= 0 {
		c.Embedding.Dense.Dimensions = 384
	}
	if c.Embedding.Sparse.Provider == "" {
		c.Embedding.Sparse.Provider = "tei"
	}
	if c.Embedding.Sparse.Model == "" {
		c.Embedding.Sparse.Model = "prithivida/Splade_PP_en_v1"
	}
	if c.Embedding.Sparse.VocabSize <= 0 {
		c.Embedding.Sparse.VocabSize = 30522
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Backend.Driver {
	case "qdrant":
		if c.Backend.Qdrant.Host == "" {
			return fmt.Errorf("backend.qdrant.host is required")
		}
	case "pgvector":
		if c.Backend.Postgres.DSN == "" {
			return fmt.Errorf("backend.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("backend.driver must be \"qdrant\" or \"pgvector\", got %q", c.Backend.Driver)
	}
	switch c.Search.Fusion {
	case "rrf", "dbsf":
	default:
		return fmt.Errorf("search.fusion must be \"rrf\" or \"dbsf\", got %q", c.Search.Fusion)
	}
	if c.Search.ResultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.result_limit %d exceeds search.max_limit %d",
			c.Search.ResultLimit, c.Search.MaxLimit)
	}
	if c.Embedding.Dense.BaseURL == "" {
		return fmt.Errorf("embedding.dense.base_url is required")
	}
	switch c.Embedding.Sparse.Provider {
	case "tei":
		if c.Embedding.Sparse.BaseURL == "" {
			return fmt.Errorf("embedding.sparse.base_url is required for provider tei")
		}
	case "lexical":
	default:
		return fmt.Errorf("embedding.sparse.provider must be \"tei\" or \"lexical\", got %q", c.Embedding.Sparse.Provider)
	}
	switch c.Embedding.Dense.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.dense.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Dense.Budget.Action,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
