package queue

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// FailedJobsCollection holds jobs that exhausted their retries.
const FailedJobsCollection = "failed_jobs"

// MongoFailedStore writes exhausted jobs to a collection.
type MongoFailedStore struct {
	col *mongo.Collection
}

func NewMongoFailedStore(col *mongo.Collection) *MongoFailedStore {
	return &MongoFailedStore{col: col}
}

func (s *MongoFailedStore) Save(ctx context.Context, job FailedJob) error {
	if _, err := s.col.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("queue: save failed job %s: %w", job.Type, err)
	}
	return nil
}
