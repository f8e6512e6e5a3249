package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/spf13/viper"
)

type Config struct {
	Store    StoreConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Server   ServerConfig
	Faults   FaultsConfig
}

type StoreConfig struct {
	// postgres or memory
	Driver string
}

type PostgresConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers  []string
	ClientID string
	// Sarama-specific
	Version       string
	ConsumerGroup string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	StateTTL time.Duration
}

type WorkerConfig struct {
	// HandlerTimeout bounds one handler run, zero means no limit.
	HandlerTimeout time.Duration
	CleanupTimeout time.Duration
}

type ServerConfig struct {
	Port string
}

// FaultsConfig names the card numbers that force the failure paths.
// Empty values disable the hooks.
type FaultsConfig struct {
	CompensationCard string
	CorrelationCard  string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "financial-movement-id")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "financial-movement-group")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_STATE_TTL", 24*time.Hour)
	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("WORKER_HANDLER_TIMEOUT", time.Duration(0))
	v.SetDefault("WORKER_CLEANUP_TIMEOUT", 10*time.Second)
}

// New reads the configuration from the environment and, when path is not
// empty, from a YAML file whose keys use the same names as the variables.
func New(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Postgres: PostgresConfig{
			URL: v.GetString("POSTGRES_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(v.GetString("KAFKA_BROKERS")),
			ClientID:      v.GetString("KAFKA_CLIENT_ID"),
			Version:       v.GetString("KAFKA_VERSION"),
			ConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
			StateTTL: v.GetDuration("REDIS_STATE_TTL"),
		},
		Worker: WorkerConfig{
			HandlerTimeout: v.GetDuration("WORKER_HANDLER_TIMEOUT"),
			CleanupTimeout: v.GetDuration("WORKER_CLEANUP_TIMEOUT"),
		},
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Faults: FaultsConfig{
			CompensationCard: v.GetString("FAULTS_COMPENSATION_CARD"),
			CorrelationCard:  v.GetString("FAULTS_CORRELATION_CARD"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("POSTGRES_URL is required for store driver %q", c.Store.Driver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		return fmt.Errorf("KAFKA_CONSUMER_GROUP is required")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (k *KafkaConfig) GetSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	if k.ClientID != "" {
		config.ClientID = k.ClientID
	}

	if k.Version != "" {
		version, err := sarama.ParseKafkaVersion(k.Version)
		if err == nil {
			config.Version = version
		}
	}

	// Consumer settings
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = time.Second
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRoundRobin(),
	}

	config.Consumer.Fetch.Min = 1
	config.Consumer.Fetch.Default = 1024 * 1024 // 1MB
	config.Consumer.MaxWaitTime = 100 * time.Millisecond

	// Network settings
	config.Net.MaxOpenRequests = 5
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	return config
}
