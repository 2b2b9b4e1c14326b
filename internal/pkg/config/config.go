package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 汇总所有服务的环境配置。单个二进制只会用到其中一部分字段，
// 共用一个结构体可以让 .env 在本地一次性配齐整套服务。
type Config struct {
	// HTTPAddr 为空时由各个 main 填入自己的默认端口
	HTTPAddr       string   `envconfig:"HTTP_ADDR" default:""`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	MySQLDSN       string   `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/ticketblitz?parseTime=true&loc=UTC"`
	RedisAddr      string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	JaegerEndpoint string   `envconfig:"JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces"`

	// 同步调用的下游地址
	UserServiceURL      string `envconfig:"USER_SERVICE_URL" default:"http://localhost:8085"`
	InventoryServiceURL string `envconfig:"INVENTORY_SERVICE_URL" default:"http://localhost:8082"`

	// 支付渠道（Omise 测试环境密钥）
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY" default:""`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY" default:""`
	OmiseCurrency  string `envconfig:"OMISE_CURRENCY" default:"thb"`

	// BookingCreated 消息里带的占位邮箱，通知服务消费用
	CustomerEmail string `envconfig:"CUSTOMER_EMAIL" default:"user@example.com"`

	// 可选的 YAML 调优文件路径，见 Tunables
	TunablesPath string `envconfig:"TUNABLES_PATH" default:""`

	Tunables Tunables `ignored:"true"`
}

// Tunables 是运行期可调的参数，放在 YAML 里而不是环境变量，
// 方便一次性整体替换。缺省值在 DefaultTunables 中。
type Tunables struct {
	LockWait       time.Duration `yaml:"lock_wait"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	RelayInterval  time.Duration `yaml:"relay_interval"`
	RelayBatchSize int           `yaml:"relay_batch_size"`
	ReleaseRetries int           `yaml:"release_retries"`
	ReleaseBackoff time.Duration `yaml:"release_backoff"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	Breaker        Breaker       `yaml:"breaker"`
}

// Breaker 熔断器参数。失败率超过 FailureRate 且窗口内请求数达到
// MinRequests 时跳闸，OpenTimeout 后进入半开。
type Breaker struct {
	FailureRate float64       `yaml:"failure_rate"`
	MinRequests int           `yaml:"min_requests"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
	HalfOpenMax int           `yaml:"half_open_max"`
}

func DefaultTunables() Tunables {
	return Tunables{
		LockWait:       3 * time.Second,
		HTTPTimeout:    5 * time.Second,
		RelayInterval:  200 * time.Millisecond,
		RelayBatchSize: 100,
		ReleaseRetries: 3,
		ReleaseBackoff: 500 * time.Millisecond,
		CacheTTL:       5 * time.Minute,
		Breaker: Breaker{
			FailureRate: 0.5,
			MinRequests: 5,
			OpenTimeout: 10 * time.Second,
			HalfOpenMax: 1,
		},
	}
}

// Load 依次应用 .env 文件、环境变量和可选的 YAML 调优文件。
func Load() (Config, error) {
	// .env 不存在不算错误，线上环境只用真实环境变量
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, errors.Wrap(err, "process env config")
	}

	c.Tunables = DefaultTunables()
	if c.TunablesPath != "" {
		raw, err := os.ReadFile(c.TunablesPath)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read tunables file %s", c.TunablesPath)
		}
		if err := yaml.Unmarshal(raw, &c.Tunables); err != nil {
			return Config{}, errors.Wrap(err, "parse tunables file")
		}
	}
	return c, nil
}
