package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Material MaterialConfig `mapstructure:"material"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	Mode              string        `mapstructure:"mode"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN postgres 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MaterialConfig 物料主档业务配置
type MaterialConfig struct {
	DocumentPrefix      string        `mapstructure:"document_prefix"`
	HumanReadablePrefix string        `mapstructure:"human_readable_prefix"`
	SKUPrefix           string        `mapstructure:"sku_prefix"`
	IDWidth             int           `mapstructure:"id_width"`
	SKUIDWidth          int           `mapstructure:"sku_id_width"`
	RequiredOnSubmit    []string      `mapstructure:"required_on_submit"`
	MaxIDAttempts       int           `mapstructure:"max_id_attempts"`
	RetryInterval       time.Duration `mapstructure:"retry_interval"`
	CardCacheTTL        time.Duration `mapstructure:"card_cache_ttl"`
	ReviewerRoles       []string      `mapstructure:"reviewer_roles"`
}

// DefaultMaterialConfig 默认物料配置
func DefaultMaterialConfig() MaterialConfig {
	return MaterialConfig{
		DocumentPrefix:      "vin_doc_",
		HumanReadablePrefix: "vin_mmat_",
		SKUPrefix:           "SKU",
		IDWidth:             4,
		SKUIDWidth:          3,
		RequiredOnSubmit:    []string{"material_name", "material_type", "supplier_name"},
		MaxIDAttempts:       3,
		RetryInterval:       20 * time.Millisecond,
		CardCacheTTL:        5 * time.Minute,
		ReviewerRoles:       []string{"sourcing", "buying"},
	}
}

// Validate 启动时校验
func (c MaterialConfig) Validate() error {
	if c.DocumentPrefix == "" || c.HumanReadablePrefix == "" || c.SKUPrefix == "" {
		return fmt.Errorf("material id prefixes must not be empty")
	}
	if c.DocumentPrefix == c.HumanReadablePrefix {
		return fmt.Errorf("document and human readable prefixes must differ")
	}
	if c.IDWidth <= 0 || c.SKUIDWidth <= 0 {
		return fmt.Errorf("material id widths must be positive")
	}
	if c.MaxIDAttempts <= 0 {
		return fmt.Errorf("material.max_id_attempts must be positive")
	}
	return entity.CheckFieldNames(c.RequiredOnSubmit)
}

func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在，使用环境变量
	}

	// 环境变量覆盖配置
	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Material.Validate(); err != nil {
		return nil, fmt.Errorf("invalid material config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("minio.bucket", "materials")

	v.SetDefault("jwt.issuer", "material-master")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	d := DefaultMaterialConfig()
	v.SetDefault("material.document_prefix", d.DocumentPrefix)
	v.SetDefault("material.human_readable_prefix", d.HumanReadablePrefix)
	v.SetDefault("material.sku_prefix", d.SKUPrefix)
	v.SetDefault("material.id_width", d.IDWidth)
	v.SetDefault("material.sku_id_width", d.SKUIDWidth)
	v.SetDefault("material.required_on_submit", d.RequiredOnSubmit)
	v.SetDefault("material.max_id_attempts", d.MaxIDAttempts)
	v.SetDefault("material.retry_interval", d.RetryInterval)
	v.SetDefault("material.card_cache_ttl", d.CardCacheTTL)
	v.SetDefault("material.reviewer_roles", d.ReviewerRoles)
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// MinIO
	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

// GetEnvOrDefault 获取环境变量，如果不存在则返回默认值
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
