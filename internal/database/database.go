package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"cake_back_end/internal/config"
)

// Connections regroupe les clients externes. Seul Scylla est obligatoire (et
// seulement en STORE_BACKEND=scylla) ; les autres restent nil s'ils ne sont pas
// configurés ou injoignables, et les composants qui les utilisent se dégradent.
type Connections struct {
	Scylla  *gocql.Session
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
	NATS    *nats.Conn
}

// --- Initialisation ---
func Connect(ctx context.Context, s config.Settings) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conns := &Connections{}

	// 1. ScyllaDB
	if s.StoreBackend == "scylla" {
		session, err := connectScylla(s)
		if err != nil {
			return nil, fmt.Errorf("échec initialisation ScyllaDB: %w", err)
		}
		conns.Scylla = session
	}

	// 2. Redis
	conns.Redis = connectRedis(ctx, s)

	// 3. Elasticsearch
	conns.Elastic = connectElastic(s)

	// 4. MinIO
	conns.MinIO = connectMinIO(ctx, s)

	// 5. NATS
	conns.NATS = connectNATS(s)

	log.Println("✅ Connexions initialisées")
	return conns, nil
}

func (c *Connections) Close() {
	if c.NATS != nil {
		c.NATS.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Scylla != nil {
		c.Scylla.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
}

// =============================================
// SCYLLA DB
// =============================================

func connectScylla(s config.Settings) (*gocql.Session, error) {
	cluster := gocql.NewCluster(s.ScyllaHosts...)
	cluster.Keyspace = s.ScyllaKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.Serial
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 20
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if s.ScyllaUser != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: s.ScyllaUser,
			Password: s.ScyllaPassword,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("création session pour %s: %w", s.ScyllaKeyspace, err)
	}
	log.Printf("✅ Session ScyllaDB pour keyspace '%s'", s.ScyllaKeyspace)
	return session, nil
}

// =============================================
// REDIS
// =============================================

func connectRedis(ctx context.Context, s config.Settings) *redis.Client {
	if s.RedisAddr == "" {
		log.Println("⚠️ REDIS_HOST absent : paniers en mémoire, pas de cache")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Println("⚠️ Redis injoignable, on continue sans :", err)
		_ = client.Close()
		return nil
	}
	log.Println("✅ Connecté à Redis")
	return client
}

// =============================================
// ELASTICSEARCH
// =============================================

func connectElastic(s config.Settings) *elasticsearch.Client {
	if s.ElasticURL == "" {
		log.Println("⚠️ ELASTIC_URL absent : recherche en mémoire")
		return nil
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{s.ElasticURL},
		Username:  s.ElasticUser,
		Password:  s.ElasticPassword,
	})
	if err != nil {
		log.Println("⚠️ Erreur création client Elasticsearch:", err)
		return nil
	}

	res, err := client.Info()
	if err != nil {
		log.Println("⚠️ Elasticsearch injoignable:", err)
		return nil
	}
	defer res.Body.Close()

	log.Println("✅ Connecté à Elasticsearch")
	return client
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, s config.Settings) *minio.Client {
	if s.MinioEndpoint == "" {
		log.Println("⚠️ MINIO_ENDPOINT absent : les images data: seront ignorées")
		return nil
	}
	client, err := minio.New(s.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.MinioAccessKey, s.MinioSecretKey, ""),
		Secure: s.MinioUseSSL,
	})
	if err != nil {
		log.Println("⚠️ MinIO non configuré :", err)
		return nil
	}

	exists, err := client.BucketExists(ctx, s.MinioBucket)
	if err != nil {
		log.Println("⚠️ Erreur vérification bucket MinIO:", err)
		return nil
	}
	if !exists {
		if err := client.MakeBucket(ctx, s.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			log.Println("⚠️ Erreur création bucket MinIO:", err)
			return nil
		}
		log.Println("🪣 Bucket créé :", s.MinioBucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", s.MinioBucket)
	}

	log.Println("✅ Connecté à MinIO :", s.MinioEndpoint)
	return client
}

// =============================================
// NATS
// =============================================

func connectNATS(s config.Settings) *nats.Conn {
	if s.NATSURL == "" {
		return nil
	}
	conn, err := nats.Connect(s.NATSURL,
		nats.Name("cake-back-end"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Println("⚠️ NATS injoignable, événements de commande désactivés:", err)
		return nil
	}
	log.Println("✅ Connecté à NATS :", s.NATSURL)
	return conn
}
