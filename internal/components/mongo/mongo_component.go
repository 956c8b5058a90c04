package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/logging"
	"github.com/JiHungLin/Skalds/internal/consts"
)

const tasksCollection = "tasks"

// MongoComponent owns the client and database handle used by the task DAO.
// Index bootstrap for the tasks collection happens at start.
type MongoComponent struct {
	*core.BaseComponent
	cfg    *Config
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoComponent(cfg *Config) *MongoComponent {
	return &MongoComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_MONGO, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

func (mc *MongoComponent) Start(ctx context.Context) error {
	if err := mc.BaseComponent.Start(ctx); err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, mc.cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(mc.cfg.URI).
		SetMaxPoolSize(mc.cfg.MaxPoolSize).
		SetConnectTimeout(mc.cfg.ConnectTimeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	mc.client = client
	mc.db = client.Database(mc.cfg.Database)

	if err := mc.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		mc.client = nil
		mc.db = nil
		return fmt.Errorf("mongo index bootstrap failed: %w", err)
	}

	logging.Info(ctx, "mongo component started",
		zap.String("database", mc.cfg.Database),
	)
	return nil
}

func (mc *MongoComponent) ensureIndexes(ctx context.Context) error {
	coll := mc.db.Collection(tasksCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "lifecycleStatus", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "executor", Value: 1}},
		},
	})
	return err
}

func (mc *MongoComponent) Stop(ctx context.Context) error {
	if mc.client != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mc.client.Disconnect(stopCtx); err != nil {
			logging.Errorf(ctx, "mongo disconnect failed: %v", err)
		}
		mc.client = nil
		mc.db = nil
	}
	return mc.BaseComponent.Stop(ctx)
}

func (mc *MongoComponent) HealthCheck() error {
	if err := mc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if mc.client == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return mc.client.Ping(ctx, nil)
}

// Tasks returns the tasks collection handle for the DAO.
func (mc *MongoComponent) Tasks() *mongo.Collection {
	if mc.db == nil {
		return nil
	}
	return mc.db.Collection(tasksCollection)
}

// OpTimeout is the per-operation deadline the DAO applies.
func (mc *MongoComponent) OpTimeout() time.Duration { return mc.cfg.OpTimeout }
