package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Access 可见性判定相关开关
type Access struct {
	// StrictUnassigned 为 true 时，部门/团队为空的用户不再互相可见
	StrictUnassigned bool `mapstructure:"strict_unassigned"`
	// CacheTTLSec 用户档案缓存时长（秒），0 关闭缓存
	CacheTTLSec int `mapstructure:"cache_ttl_sec"`
}

// Notes 周报与留言的超时/重试参数
type Notes struct {
	ReadTimeoutSec   int `mapstructure:"read_timeout_sec"`   // 跨用户读取的上限
	WatchTimeoutSec  int `mapstructure:"watch_timeout_sec"`  // 变更长轮询挂起上限
	ProvisionRetries int `mapstructure:"provision_retries"`  // 自动建档的重试次数
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	DB     DB
	Redis  Redis  `mapstructure:"redis"`
	Access Access `mapstructure:"access"`
	Notes  Notes  `mapstructure:"notes"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.Notes.ReadTimeoutSec <= 0 {
		c.Notes.ReadTimeoutSec = 5
	}
	if c.Notes.WatchTimeoutSec <= 0 {
		c.Notes.WatchTimeoutSec = 25
	}
	if c.Notes.ProvisionRetries <= 0 {
		c.Notes.ProvisionRetries = 3
	}
	if c.Access.CacheTTLSec < 0 {
		c.Access.CacheTTLSec = 0
	}
}
