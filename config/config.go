package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DirName is the configuration directory under the user's home.
const DirName = ".quizgen"

// Config holds application configuration
type Config struct {
	Server struct {
		Addr           string        `yaml:"addr"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxUploadMB    int64         `yaml:"max_upload_mb"`
		CORSOrigins    []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Processing struct {
		ChunkSize              int     `yaml:"chunk_size"`
		ChunkOverlap           int     `yaml:"chunk_overlap"`
		TopK                   int     `yaml:"top_k"`
		EmbedWorkers           int     `yaml:"embed_workers"`
		TranscriptChunkSize    int     `yaml:"transcript_chunk_size"`
		TranscriptChunkOverlap int     `yaml:"transcript_chunk_overlap"`
		MMRFetchK              int     `yaml:"mmr_fetch_k"`
		MMRLambda              float64 `yaml:"mmr_lambda"`
		SummaryGroupChars      int     `yaml:"summary_group_chars"`
		TranscriptLanguage     string  `yaml:"transcript_language"`
	} `yaml:"processing"`
	Embeddings struct {
		Backend   string `yaml:"backend"`
		Dimension int    `yaml:"dimension"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"embeddings"`
	CLIP struct {
		PythonPath string `yaml:"python_path"`
		ScriptPath string `yaml:"script_path"`
		Model      string `yaml:"model"`
	} `yaml:"clip"`
	Generation struct {
		Gemini Provider `yaml:"gemini"`
		Groq   Provider `yaml:"groq"`
		Ollama struct {
			BaseURL string `yaml:"base_url"`
			Model   string `yaml:"model"`
			Enabled bool   `yaml:"enabled"`
		} `yaml:"ollama"`
	} `yaml:"generation"`
	Database struct {
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"database"`
	Redis struct {
		Addr          string        `yaml:"addr"`
		Password      string        `yaml:"password"`
		DB            int           `yaml:"db"`
		TranscriptTTL time.Duration `yaml:"transcript_ttl"`
	} `yaml:"redis"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	path string
	// fileValues holds what the environment replaced, keyed by variable.
	fileValues map[string]any
}

// Provider configures a hosted generation API.
type Provider struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultPath returns ~/.quizgen/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, DirName, "config.yaml")
}

// Load reads the configuration at path, or the default path when empty.
// A missing file yields the defaults. A .env file in the working directory
// is loaded first and the environment overrides the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// envVar binds an environment variable to the field it overrides.
type envVar struct {
	key string
	str *string
	num *int
}

func (c *Config) envVars() []envVar {
	return []envVar{
		{key: "GOOGLE_API_KEY", str: &c.Generation.Gemini.APIKey},
		{key: "GROQ_API_KEY", str: &c.Generation.Groq.APIKey},
		{key: "OLLAMA_HOST", str: &c.Generation.Ollama.BaseURL},
		{key: "DATABASE_URL", str: &c.Database.ConnectionString},
		{key: "REDIS_ADDR", str: &c.Redis.Addr},
		{key: "REDIS_PASSWORD", str: &c.Redis.Password},
		{key: "QUIZGEN_ADDR", str: &c.Server.Addr},
		{key: "QUIZGEN_EMBEDDINGS", str: &c.Embeddings.Backend},
		{key: "QUIZGEN_TOP_K", num: &c.Processing.TopK},
		{key: "LOG_LEVEL", str: &c.Logging.Level},
		{key: "LOG_FORMAT", str: &c.Logging.Format},
	}
}

func (c *Config) applyEnv() {
	c.fileValues = make(map[string]any)
	for _, v := range c.envVars() {
		if v.str != nil {
			if value := getEnv(v.key, *v.str); value != *v.str {
				c.fileValues[v.key] = *v.str
				*v.str = value
			}
			continue
		}
		if value := getEnvAsInt(v.key, *v.num); value != *v.num {
			c.fileValues[v.key] = *v.num
			*v.num = value
		}
	}
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultPath()
	}
	return c.path
}

// Save saves configuration to file. Fields taken from the environment are
// written with their file values so secrets never land on disk.
func (c *Config) Save() error {
	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	for _, v := range out.envVars() {
		orig, ok := c.fileValues[v.key]
		if !ok {
			continue
		}
		if v.str != nil {
			*v.str = orig.(string)
		} else {
			*v.num = orig.(int)
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Addr = ":8000"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 5 * time.Minute
	cfg.Server.RequestTimeout = 5 * time.Minute
	cfg.Server.MaxUploadMB = 50
	cfg.Server.CORSOrigins = []string{"*"}

	cfg.Processing.ChunkSize = 500
	cfg.Processing.ChunkOverlap = 100
	cfg.Processing.TopK = 5
	cfg.Processing.TranscriptChunkSize = 800
	cfg.Processing.TranscriptChunkOverlap = 100
	cfg.Processing.MMRFetchK = 20
	cfg.Processing.MMRLambda = 0.5
	cfg.Processing.SummaryGroupChars = 10000
	cfg.Processing.TranscriptLanguage = "en"

	cfg.Embeddings.Backend = "hash"
	cfg.Embeddings.Dimension = 512
	cfg.Embeddings.MaxTokens = 77

	cfg.CLIP.PythonPath = "python3"

	cfg.Generation.Gemini.Model = "gemini-2.0-flash-exp"
	cfg.Generation.Gemini.Timeout = 2 * time.Minute
	cfg.Generation.Groq.Model = "llama-3.3-70b-versatile"
	cfg.Generation.Groq.Timeout = time.Minute
	cfg.Generation.Ollama.BaseURL = "http://localhost:11434"

	cfg.Redis.TranscriptTTL = 24 * time.Hour

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
