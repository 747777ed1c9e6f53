package config

import (
	"time"

	"github.com/go-redis/redis"
)

type RedisConfig struct {
	// host:port of the server. Empty disables report storage.
	Addr        string
	DB          int `validate:"gte=0,lte=16"`
	Password    string
	MaxRetries  int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

func (rc RedisConfig) Enabled() bool {
	return rc.Addr != ""
}

func (rc RedisConfig) AsOptions() *redis.Options {
	return &redis.Options{
		Addr:        rc.Addr,
		DB:          rc.DB,
		Password:    rc.Password,
		MaxRetries:  rc.MaxRetries,
		DialTimeout: rc.DialTimeout,
		ReadTimeout: rc.ReadTimeout,
	}
}
