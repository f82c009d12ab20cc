package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds the client used for the advisory availability cache.
// A dead Redis is logged and tolerated; the booking commit path never
// depends on it.
func ConnectRedis(env Env) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis not reachable at %s: %v (availability cache disabled)", env.RedisAddr, err)
	} else {
		log.Println("connected to Redis")
	}
	return client
}
