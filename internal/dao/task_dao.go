package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JiHungLin/Skalds/internal/app/core"
	mongocomp "github.com/JiHungLin/Skalds/internal/components/mongo"
	"github.com/JiHungLin/Skalds/internal/consts"
	"github.com/JiHungLin/Skalds/internal/model"
)

// TaskDao is the typed surface over the tasks collection.
type TaskDao interface {
	Create(ctx context.Context, t *model.Task) error
	Get(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter, page, pageSize int) ([]*model.Task, int64, error)
	// ListMonitored returns every task in Assigning or Running.
	ListMonitored(ctx context.Context) ([]*model.Task, error)
	// ListDispatchable returns Passive tasks in Created or Paused, ordered by
	// priority descending then age ascending.
	ListDispatchable(ctx context.Context) ([]*model.Task, error)
	// UpdateStatusCAS moves id to `to` only while its current status is in
	// `from`; a miss returns ErrConflict.
	UpdateStatusCAS(ctx context.Context, id string, from []model.TaskLifecycleStatus, to model.TaskLifecycleStatus) error
	UpdateExecutor(ctx context.Context, id, executor string) error
	ClearExecutor(ctx context.Context, id string) error
	UpdateAttachments(ctx context.Context, id string, payload map[string]interface{}) error
	Reachable() bool
}

// MongoTaskDao implements TaskDao on the mongo component.
type MongoTaskDao struct {
	*core.BaseComponent
	Mongo *mongocomp.MongoComponent `infra:"dep:mongo"`
}

func NewMongoTaskDao() *MongoTaskDao {
	return &MongoTaskDao{
		BaseComponent: core.NewBaseComponent(consts.COMP_DAO_TASK, consts.COMPONENT_MONGO),
	}
}

func (d *MongoTaskDao) coll() *driver.Collection {
	if d.Mongo == nil {
		return nil
	}
	return d.Mongo.Tasks()
}

func (d *MongoTaskDao) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := 3 * time.Second
	if d.Mongo != nil {
		timeout = d.Mongo.OpTimeout()
	}
	return context.WithTimeout(ctx, timeout)
}

func (d *MongoTaskDao) Create(ctx context.Context, t *model.Task) error {
	coll := d.coll()
	if coll == nil {
		return fmt.Errorf("store not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	_, err := coll.InsertOne(opCtx, t)
	if driver.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("store insert task %s: %w", t.ID, err)
	}
	return nil
}

func (d *MongoTaskDao) Get(ctx context.Context, id string) (*model.Task, error) {
	coll := d.coll()
	if coll == nil {
		return nil, fmt.Errorf("store not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	var t model.Task
	err := coll.FindOne(opCtx, bson.M{"id": id}).Decode(&t)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store get task %s: %w", id, err)
	}
	return &t, nil
}

func buildFilter(f model.TaskFilter) bson.M {
	filter := bson.M{}
	if f.ID != "" {
		filter["id"] = f.ID
	}
	if f.ClassName != "" {
		filter["className"] = f.ClassName
	}
	if f.Executor != "" {
		filter["executor"] = f.Executor
	}
	if len(f.Statuses) > 0 {
		filter["lifecycleStatus"] = bson.M{"$in": f.Statuses}
	}
	return filter
}

// List pages 1-based and reports the total match count alongside the page.
func (d *MongoTaskDao) List(ctx context.Context, f model.TaskFilter, page, pageSize int) ([]*model.Task, int64, error) {
	coll := d.coll()
	if coll == nil {
		return nil, 0, fmt.Errorf("store not connected")
	}
	if page < 1 {
		page = 1
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()

	filter := buildFilter(f)
	total, err := coll.CountDocuments(opCtx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("store count tasks: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createDateTime", Value: -1}}).
		SetSkip(int64(page-1) * int64(pageSize)).
		SetLimit(int64(pageSize))
	cur, err := coll.Find(opCtx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("store list tasks: %w", err)
	}
	defer cur.Close(opCtx)

	var tasks []*model.Task
	if err := cur.All(opCtx, &tasks); err != nil {
		return nil, 0, fmt.Errorf("store decode tasks: %w", err)
	}
	return tasks, total, nil
}

func (d *MongoTaskDao) ListMonitored(ctx context.Context) ([]*model.Task, error) {
	return d.findAll(ctx, bson.M{
		"lifecycleStatus": bson.M{"$in": []model.TaskLifecycleStatus{
			model.StatusAssigning, model.StatusRunning,
		}},
	}, nil)
}

func (d *MongoTaskDao) ListDispatchable(ctx context.Context) ([]*model.Task, error) {
	return d.findAll(ctx, bson.M{
		"mode": model.ModePassive,
		"lifecycleStatus": bson.M{"$in": []model.TaskLifecycleStatus{
			model.StatusCreated, model.StatusPaused,
		}},
	}, options.Find().SetSort(bson.D{
		{Key: "priority", Value: -1},
		{Key: "createDateTime", Value: 1},
	}))
}

func (d *MongoTaskDao) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Task, error) {
	coll := d.coll()
	if coll == nil {
		return nil, fmt.Errorf("store not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	var cur *driver.Cursor
	var err error
	if opts != nil {
		cur, err = coll.Find(opCtx, filter, opts)
	} else {
		cur, err = coll.Find(opCtx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("store find tasks: %w", err)
	}
	defer cur.Close(opCtx)
	var tasks []*model.Task
	if err := cur.All(opCtx, &tasks); err != nil {
		return nil, fmt.Errorf("store decode tasks: %w", err)
	}
	return tasks, nil
}

func (d *MongoTaskDao) UpdateStatusCAS(ctx context.Context, id string, from []model.TaskLifecycleStatus, to model.TaskLifecycleStatus) error {
	coll := d.coll()
	if coll == nil {
		return fmt.Errorf("store not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	res, err := coll.UpdateOne(opCtx,
		bson.M{"id": id, "lifecycleStatus": bson.M{"$in": from}},
		bson.M{"$set": bson.M{
			"lifecycleStatus": to,
			"updateDateTime":  time.Now().UnixMilli(),
		}},
	)
	if err != nil {
		return fmt.Errorf("store update status %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (d *MongoTaskDao) UpdateExecutor(ctx context.Context, id, executor string) error {
	return d.setFields(ctx, id, bson.M{"executor": executor})
}

func (d *MongoTaskDao) ClearExecutor(ctx context.Context, id string) error {
	return d.setFields(ctx, id, bson.M{"executor": ""})
}

func (d *MongoTaskDao) UpdateAttachments(ctx context.Context, id string, payload map[string]interface{}) error {
	return d.setFields(ctx, id, bson.M{"attachments": payload})
}

func (d *MongoTaskDao) setFields(ctx context.Context, id string, fields bson.M) error {
	coll := d.coll()
	if coll == nil {
		return fmt.Errorf("store not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	fields["updateDateTime"] = time.Now().UnixMilli()
	res, err := coll.UpdateOne(opCtx, bson.M{"id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("store update task %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *MongoTaskDao) Reachable() bool {
	return d.Mongo != nil && d.Mongo.HealthCheck() == nil
}
