package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Milvus    MilvusConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Memory    MemoryConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
	IndexType      string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLMin   int
}

type LLMConfig struct {
	Provider       string
	Model          string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
	EmbeddingModel string
	EmbeddingDim   int
	RecallMaxChars int
}

type IngestConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	MinChunkSize      int
	FallbackChunkSize int
	FallbackOverlap   int
	MinChunks         int
}

type RetrievalConfig struct {
	Candidates int
	Final      int
	FetchK     int
	MMRLambda  float64
	Alpha      float64
}

type MemoryConfig struct {
	Window int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/docs-agent")

	viper.SetEnvPrefix("DOCS_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "api_docs")
	viper.SetDefault("milvus.vectorDim", 1536)
	viper.SetDefault("milvus.indexType", "IVF_FLAT")

	viper.SetDefault("sqlite.path", "./data/docsagent.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlMin", 60)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 60)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.embeddingDim", 1536)
	viper.SetDefault("llm.recallMaxChars", 160000)

	viper.SetDefault("ingest.chunkSize", 1500)
	viper.SetDefault("ingest.chunkOverlap", 300)
	viper.SetDefault("ingest.minChunkSize", 50)
	viper.SetDefault("ingest.fallbackChunkSize", 4000)
	viper.SetDefault("ingest.fallbackOverlap", 800)
	viper.SetDefault("ingest.minChunks", 10)

	viper.SetDefault("retrieval.candidates", 24)
	viper.SetDefault("retrieval.final", 8)
	viper.SetDefault("retrieval.fetchK", 20)
	viper.SetDefault("retrieval.mmrLambda", 0.7)
	viper.SetDefault("retrieval.alpha", 0.5)

	viper.SetDefault("memory.window", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
