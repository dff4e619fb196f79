package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rouge-eval/backend/internal/rouge"
)

type Config struct {
	Server    ServerConfig
	Rouge     RougeConfig
	Scoring   rouge.ScoringConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
	Limits         LimitsConfig
}

// LimitsConfig bounds the size of a single API request.
type LimitsConfig struct {
	MaxSummaries    int
	MaxSummaryBytes int
	MaxReportBytes  int
}

// RougeConfig locates the ROUGE-1.5.5 script and its data directory.
type RougeConfig struct {
	Interpreter string
	ScriptPath  string
	DataPath    string
	// WorkDir holds per-request workspaces; empty uses the OS temp dir.
	WorkDir string
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
	TTLSec   int
}

type BreakerConfig struct {
	FailureThreshold uint32
	TimeoutSec       int
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads .env, then config.yaml, then ROUGE_EVAL_* environment
// variables, later sources winning.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file instead of the search path.
func LoadFile(path string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/rouge-eval")
	}

	v.SetEnvPrefix("ROUGE_EVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 300)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.development", false)
	v.SetDefault("server.limits.maxSummaries", 1000)
	v.SetDefault("server.limits.maxSummaryBytes", 65536)
	v.SetDefault("server.limits.maxReportBytes", 5242880)

	v.SetDefault("rouge.interpreter", "perl")
	v.SetDefault("rouge.scriptPath", "./rouge/ROUGE-1.5.5.pl")
	v.SetDefault("rouge.dataPath", "./rouge/data")
	v.SetDefault("rouge.workDir", "")

	d := rouge.DefaultScoringConfig()
	v.SetDefault("scoring.maxNGram", d.MaxNGram)
	v.SetDefault("scoring.useLCS", d.UseLCS)
	v.SetDefault("scoring.showAll", d.ShowAll)
	v.SetDefault("scoring.useStemmer", d.UseStemmer)
	v.SetDefault("scoring.summaryLength", d.SummaryLength)
	v.SetDefault("scoring.lengthUnit", string(d.LengthUnit))
	v.SetDefault("scoring.numResamplingSamples", d.NumResamplingSamples)
	v.SetDefault("scoring.scoringFormula", string(d.ScoringFormula))
	v.SetDefault("scoring.removeStopwords", d.RemoveStopwords)

	v.SetDefault("sqlite.path", "./data/rouge.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 86400)

	v.SetDefault("breaker.failureThreshold", 5)
	v.SetDefault("breaker.timeoutSec", 30)

	v.SetDefault("rateLimit.requestsPerMinute", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
