package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// getJSON lit une clé JSON ; client nil ou clé absente = miss
func getJSON(ctx context.Context, client *redis.Client, key string, dest interface{}) bool {
	if client == nil {
		return false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Lecture cache %s impossible: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("⚠️ Cache %s illisible, ignoré: %v", key, err)
		return false
	}
	return true
}

func setJSON(ctx context.Context, client *redis.Client, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("⚠️ Encodage cache %s impossible: %v", key, err)
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("⚠️ Écriture cache %s impossible: %v", key, err)
	}
}

// deletePattern supprime toutes les clés correspondant au motif (SCAN, jamais KEYS)
func deletePattern(ctx context.Context, client *redis.Client, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️ Invalidation %s incomplète: %v", pattern, err)
	}
}

// IncrementRateLimit incrémente le compteur et (ré)arme sa fenêtre
func IncrementRateLimit(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	pipe := client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetRateLimit récupère le compteur de rate limit
func GetRateLimit(ctx context.Context, client *redis.Client, key string) (int64, error) {
	val, err := client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}
