package config

import (
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/library-lending/lending/internal/cache"
	"github.com/Astemirdum/library-lending/pkg/auth"
	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
	"github.com/Astemirdum/library-lending/pkg/kafka"
	"github.com/Astemirdum/library-lending/pkg/logger"
	"github.com/Astemirdum/library-lending/pkg/postgres"
	"github.com/kelseyhightower/envconfig"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

// Admin is the account created on start when no active admin exists.
type Admin struct {
	Email    string `yaml:"email" envconfig:"ADMIN_EMAIL"`
	Password string `yaml:"password" envconfig:"ADMIN_PASSWORD"`
	FullName string `yaml:"fullName" envconfig:"ADMIN_FULL_NAME" default:"Administrator"`
}

type Config struct {
	Server   HTTPServer             `yaml:"server"`
	Database postgres.DB            `yaml:"db"`
	Log      logger.Log             `yaml:"log"`
	Kafka    kafka.Config           `yaml:"kafka"`
	Breaker  circuit_breaker.Config `yaml:"breaker"`
	Redis    cache.Config           `yaml:"redis"`
	Auth     auth.Config            `yaml:"auth"`
	Admin    Admin                  `yaml:"admin"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
// Options fill defaults that the environment may override.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})

	return cfg
}
