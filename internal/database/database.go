package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atelier_back_end/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Clients regroupe les connexions ouvertes au démarrage.
// Seul Mongo est obligatoire, les autres restent nil si non configurés.
type Clients struct {
	Mongo   *mongo.Client
	DB      *mongo.Database
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
	Scylla  *gocql.Session
}

// Connect ouvre toutes les connexions configurées
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Clients, error) {
	c := &Clients{}

	if err := c.connectMongo(ctx, cfg.Mongo); err != nil {
		return nil, err
	}
	log.Info("✅ Connecté à MongoDB", zap.String("database", cfg.Mongo.Database))

	if cfg.Redis.Addr != "" {
		if err := c.connectRedis(ctx, cfg.Redis); err != nil {
			c.Close(ctx)
			return nil, err
		}
		log.Info("✅ Connecté à Redis", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Elastic.URL != "" {
		if err := c.connectElastic(cfg.Elastic); err != nil {
			c.Close(ctx)
			return nil, err
		}
		log.Info("✅ Connecté à Elasticsearch")
	}

	if cfg.MinIO.Endpoint != "" {
		created, err := c.connectMinIO(ctx, cfg.MinIO)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		if created {
			log.Info("🪣 Bucket créé", zap.String("bucket", cfg.MinIO.Bucket))
		}
		log.Info("✅ Connecté à MinIO", zap.String("endpoint", cfg.MinIO.Endpoint))
	}

	if len(cfg.Scylla.Hosts) > 0 {
		if err := c.connectScylla(cfg.Scylla); err != nil {
			c.Close(ctx)
			return nil, err
		}
		log.Info("✅ Session ScyllaDB ouverte", zap.String("keyspace", cfg.Scylla.Keyspace))
	}

	return c, nil
}

func (c *Clients) connectMongo(ctx context.Context, cfg config.MongoConfig) error {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetRegistry(NewRegistry()).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("connexion MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ping MongoDB: %w", err)
	}

	c.Mongo = client
	c.DB = client.Database(cfg.Database)
	return nil
}

func (c *Clients) connectRedis(ctx context.Context, cfg config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connexion Redis: %w", err)
	}
	c.Redis = client
	return nil
}

func (c *Clients) connectElastic(cfg config.ElasticConfig) error {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("connexion Elasticsearch: %s", res.Status())
	}

	c.Elastic = client
	return nil
}

// connectMinIO crée le bucket s'il n'existe pas encore
func (c *Clients) connectMinIO(ctx context.Context, cfg config.MinIOConfig) (bool, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return false, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return false, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return false, fmt.Errorf("création bucket MinIO: %w", err)
		}
	}

	c.MinIO = client
	return !exists, nil
}

func (c *Clients) connectScylla(cfg config.ScyllaConfig) error {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.ReconnectInterval = time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	if cfg.User != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.User,
			Password: cfg.Password,
		}
	}

	// le keyspace doit exister avant d'ouvrir la session dessus
	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("session ScyllaDB: %w", err)
	}
	err = bootstrap.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		cfg.Keyspace,
	)).Exec()
	bootstrap.Close()
	if err != nil {
		return fmt.Errorf("création keyspace %s: %w", cfg.Keyspace, err)
	}

	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("session ScyllaDB (%s): %w", cfg.Keyspace, err)
	}
	c.Scylla = session
	return nil
}

// Ping vérifie MongoDB, utilisé par /healthz
func (c *Clients) Ping(ctx context.Context) error {
	if c == nil || c.Mongo == nil {
		return errors.New("MongoDB non connecté")
	}
	return c.Mongo.Ping(ctx, nil)
}

// Close ferme toutes les connexions ouvertes
func (c *Clients) Close(ctx context.Context) error {
	var errs []error
	if c.Scylla != nil {
		c.Scylla.Close()
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Mongo != nil {
		errs = append(errs, c.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
