package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	AuthCacheTTL = 15 * time.Minute // Cache les vérifications de mot de passe pendant 15 min
)

func authKey(username, password string) string {
	passwordHash := sha256.Sum256([]byte(password))
	return "auth:" + username + ":" + hex.EncodeToString(passwordHash[:])
}

// IsCredentialCached évite de refaire argon2 à chaque connexion admin
func IsCredentialCached(ctx context.Context, client *redis.Client, username, password string) bool {
	if client == nil {
		return false
	}
	result, err := client.Get(ctx, authKey(username, password)).Result()
	return err == nil && result == "valid"
}

// CacheCredential met en cache une vérification réussie
func CacheCredential(ctx context.Context, client *redis.Client, username, password string) {
	if client == nil {
		return
	}
	client.Set(ctx, authKey(username, password), "valid", AuthCacheTTL)
}

// InvalidateAuthCache oublie toutes les vérifications d'un identifiant
func InvalidateAuthCache(ctx context.Context, client *redis.Client, username string) {
	deletePattern(ctx, client, "auth:"+username+":*")
}
