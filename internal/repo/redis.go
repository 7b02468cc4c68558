package repo

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"inkgen/config"
)

var Redis *redis.Client

// InitRedis initializes the Redis client. Redis only backs the signed-URL
// cache, so an unreachable Redis is logged and left nil rather than fatal.
func InitRedis() {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.AppConfig.RedisHost, config.AppConfig.RedisPort),
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Printf("init redis fail, signed-url cache disabled: %v", err)
		return
	}
	log.Println("init redis success")
	Redis = client
}
