package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-facetec-relay/models"

	"github.com/redis/go-redis/v9"
)

// Should be safe to use in concurrency
type AuditStore interface {
	// Store the audit record under its record id.
	// Should not return an error when the record already exists,
	// it should just overwrite in that case.
	StoreRecord(record models.AuditRecord) error

	// Should retrieve the record for the given record id
	// and return an error in any case where it fails to do so.
	RetrieveRecord(recordId string) (models.AuditRecord, error)
}

// NoopAuditStore discards every record; used when auditing is disabled so
// the relay stays fully stateless.
type NoopAuditStore struct{}

func (NoopAuditStore) StoreRecord(models.AuditRecord) error { return nil }

func (NoopAuditStore) RetrieveRecord(recordId string) (models.AuditRecord, error) {
	return models.AuditRecord{}, fmt.Errorf("auditing is disabled, no record for %s", recordId)
}

type InMemoryAuditStore struct {
	RecordMap map[string]models.AuditRecord
	mutex     sync.Mutex
}

func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{
		RecordMap: make(map[string]models.AuditRecord),
	}
}

type RedisAuditStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisAuditStore(client *redis.Client, namespace string) *RedisAuditStore {
	return &RedisAuditStore{client: client, namespace: namespace}
}

// ------------------------------------------------------------------------------

func createKey(namespace, recordId string) string {
	return fmt.Sprintf("%s:audit:%s", namespace, recordId)
}

// Retention window for audit records in Redis
const AuditRetention time.Duration = 30 * 24 * time.Hour

func (s *RedisAuditStore) StoreRecord(record models.AuditRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, record.RecordId), payload, AuditRetention).Err()
}

func (s *RedisAuditStore) RetrieveRecord(recordId string) (models.AuditRecord, error) {
	ctx := context.Background()
	payload, err := s.client.Get(ctx, createKey(s.namespace, recordId)).Result()
	if err != nil {
		return models.AuditRecord{}, err
	}

	var record models.AuditRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return models.AuditRecord{}, fmt.Errorf("failed to unmarshal audit record: %w", err)
	}
	return record, nil
}

// ------------------------------------------------------------------------------

func (s *InMemoryAuditStore) StoreRecord(record models.AuditRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.RecordMap[record.RecordId] = record
	return nil
}

func (s *InMemoryAuditStore) RetrieveRecord(recordId string) (models.AuditRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if record, ok := s.RecordMap[recordId]; ok {
		return record, nil
	} else {
		return models.AuditRecord{}, fmt.Errorf("failed to find audit record for %s", recordId)
	}
}
