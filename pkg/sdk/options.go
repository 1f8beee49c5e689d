package shopsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver     string // "qdrant" or "pgvector"
	collection string

	qdrantHost   string
	qdrantPort   int
	qdrantAPIKey string
	qdrantTLS    bool

	postgresDSN string

	dense            DenseEmbedder
	sparse           SparseEmbedder
	openai           *openaiOptions
	teiSparse        *teiOptions
	lexical          bool
	lexicalVocab     int
	queryInstruction string
	embedTimeout     time.Duration

	fusion        string
	rrfK          int
	prefetchLimit int
	defaultLimit  int
	maxLimit      int

	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

type openaiOptions struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
}

type teiOptions struct {
	baseURL string
	model   string
}

// WithQdrant configures the client to query Qdrant over gRPC.
func WithQdrant(host string, port int, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.qdrantHost = host
		c.qdrantPort = port
		c.qdrantAPIKey = apiKey
	})
}

// WithQdrantTLS enables TLS on the Qdrant connection.
func WithQdrantTLS() Option {
	return optionFunc(func(c *clientConfig) {
		c.qdrantTLS = true
	})
}

// WithPostgres configures the client to query PostgreSQL with pgvector.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "pgvector"
		c.postgresDSN = dsn
	})
}

// WithCollection sets the collection (Qdrant) or table (pgvector) name.
// Default: "products".
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collection = name
	})
}

// WithDenseEmbedder sets a custom dense embedding provider.
func WithDenseEmbedder(e DenseEmbedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.dense = e
	})
}

// WithSparseEmbedder sets a custom sparse embedding provider.
func WithSparseEmbedder(e SparseEmbedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.sparse = e
	})
}

// WithOpenAIDense uses an OpenAI-compatible embeddings API for the dense branch.
func WithOpenAIDense(baseURL, apiKey, model string, dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &openaiOptions{baseURL: baseURL, apiKey: apiKey, model: model, dims: dims}
	})
}

// WithTEISparse uses a text-embeddings-inference /embed_sparse endpoint for the sparse branch.
func WithTEISparse(baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.teiSparse = &teiOptions{baseURL: baseURL, model: model}
	})
}

// WithLexicalSparse uses the local hashed-token encoder for the sparse branch.
// vocab <= 0 uses the BERT vocabulary size.
func WithLexicalSparse(vocab int) Option {
	return optionFunc(func(c *clientConfig) {
		c.lexical = true
		c.lexicalVocab = vocab
	})
}

// WithQueryInstruction prepends an instruction to the dense query text (BGE retrieval prompt).
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithEmbeddingTimeout bounds each embedding call. Default: 5s.
func WithEmbeddingTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedTimeout = d
	})
}

// WithFusion selects the fusion policy: "rrf" (default) or "dbsf".
func WithFusion(policy string) Option {
	return optionFunc(func(c *clientConfig) {
		c.fusion = policy
	})
}

// WithRRFK sets the RRF constant used by local fusion. Default: 60.
func WithRRFK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rrfK = k
	})
}

// WithPrefetchLimit sets the candidate depth of each branch. Default: 50.
func WithPrefetchLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefetchLimit = n
	})
}

// WithLimits sets the default and maximum result counts. Defaults: 50 and 100.
func WithLimits(defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithReadinessTimeout bounds the initial backend readiness wait. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
