package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Export    ExportConfig    `mapstructure:"export"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	APIPrefix    string `mapstructure:"api_prefix"`
	ProjectName  string `mapstructure:"project_name"`
	Version      string `mapstructure:"version"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	URL             string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否用 GORM 自动迁移表结构
	Debug           bool   `mapstructure:"debug"`             // 输出全部 SQL
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 优先使用 URL，例如 redis://:pass@localhost:6379/0
	URL string `mapstructure:"url"`

	// 连接模式: standalone(单节点), sentinel(哨兵), cluster(集群)
	Mode string `mapstructure:"mode"`

	// 单节点模式配置
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 哨兵模式配置
	MasterName    string   `mapstructure:"master_name"`
	SentinelAddrs []string `mapstructure:"sentinel_addrs"`

	// 集群模式配置
	ClusterAddrs []string `mapstructure:"cluster_addrs"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
}

// AuthConfig 令牌签发配置
type AuthConfig struct {
	SecretKey                string `mapstructure:"secret_key"`
	Algorithm                string `mapstructure:"algorithm"` // HS256, HS384, HS512
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes"`
	Issuer                   string `mapstructure:"issuer"`
}

// AccessTokenTTL 访问令牌有效期
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenExpireMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// ExportConfig CSV 导出任务配置
type ExportConfig struct {
	Queue     string        `mapstructure:"queue"`
	PageSize  int           `mapstructure:"page_size"`
	Retention time.Duration `mapstructure:"retention"` // 完成后结果保留时间
	Storage   string        `mapstructure:"storage"`   // local, s3
	Dir       string        `mapstructure:"dir"`
	S3        S3Config      `mapstructure:"s3"`
}

// S3Config S3 兼容对象存储配置
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// WorkerConfig 后台任务 Worker 配置
type WorkerConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	Embedded    bool `mapstructure:"embedded"` // 在 API 进程内同时运行 Worker
}

// RateLimitConfig 登录限流配置
type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
	Burst          int `mapstructure:"burst"`
}

// CORSConfig 跨域配置，AllowOrigins 为空时允许任意来源
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
	AllowHeaders []string `mapstructure:"allow_headers"`
	AllowMethods []string `mapstructure:"allow_methods"`
}

// legacyEnv 兼容原部署使用的环境变量名
var legacyEnv = map[string]string{
	"database.url":                     "DATABASE_URL",
	"auth.secret_key":                  "SECRET_KEY",
	"auth.algorithm":                   "ALGORITHM",
	"auth.access_token_expire_minutes": "ACCESS_TOKEN_EXPIRE_MINUTES",
	"redis.url":                        "REDIS_URL",
	"export.dir":                       "EXPORT_DIR",
	"database.debug":                   "DEBUG",
	"cors.allow_origins":               "CORS_ALLOW_ORIGINS",
	"cors.allow_headers":               "CORS_ALLOW_HEADERS",
	"cors.allow_methods":               "CORS_ALLOW_METHODS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.api_prefix", "/api/v1")
	v.SetDefault("server.project_name", "Log API")
	v.SetDefault("server.version", "1.0.0")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "postgresql://root@localhost:5432/demo")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("auth.secret_key", "super-secret-key")
	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.access_token_expire_minutes", 30)
	v.SetDefault("auth.issuer", "logapi")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("export.queue", "exports")
	v.SetDefault("export.page_size", 1000)
	v.SetDefault("export.retention", "24h")
	v.SetDefault("export.storage", "local")
	v.SetDefault("export.dir", "/tmp")
	v.SetDefault("export.s3.region", "us-east-1")

	v.SetDefault("worker.concurrency", 1)

	v.SetDefault("rate_limit.login_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("cors.allow_origins", []string{})
	v.SetDefault("cors.allow_headers", []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Request-ID"})
	v.SetDefault("cors.allow_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
}

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_DATABASE_URL

	for key, name := range legacyEnv {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	// 读取配置文件；未找到时仅使用默认值与环境变量
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s (可选: postgres, sqlite)", c.Database.Driver)
	}
	switch strings.ToUpper(c.Auth.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("不支持的签名算法: %s (可选: HS256, HS384, HS512)", c.Auth.Algorithm)
	}
	switch strings.ToLower(c.Export.Storage) {
	case "local":
	case "s3":
		if c.Export.S3.Bucket == "" {
			return fmt.Errorf("export.storage=s3 需要配置 export.s3.bucket")
		}
	default:
		return fmt.Errorf("不支持的导出存储: %s (可选: local, s3)", c.Export.Storage)
	}
	return nil
}
