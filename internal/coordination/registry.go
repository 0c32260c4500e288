// Package coordination tracks running instances and elects a single leader
// for cluster-wide background jobs.
package coordination

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const instancesKey = "coplay:instances"

// InstanceRegistry tracks active coplay instances in Redis.
// Each instance sends periodic heartbeats to a shared hash.
// Instances without heartbeat for >60s are considered inactive.
type InstanceRegistry struct {
	redis      *redis.Client
	instanceID string
	heartbeat  time.Duration
	version    string
}

// InstanceInfo holds metadata about an instance.
type InstanceInfo struct {
	InstanceID string `json:"instance_id"`
	Timestamp  int64  `json:"timestamp"`
	Version    string `json:"version"`
}

// NewInstanceRegistry creates a new instance registry.
// instanceID should be unique per instance (e.g., hostname or UUID).
// heartbeat determines how frequently this instance updates its registration.
// version is the Git commit hash or version string.
func NewInstanceRegistry(redis *redis.Client, instanceID string, heartbeat time.Duration, version string) *InstanceRegistry {
	return &InstanceRegistry{
		redis:      redis,
		instanceID: instanceID,
		heartbeat:  heartbeat,
		version:    version,
	}
}

// Start begins the heartbeat loop.
// Registers immediately, then sends heartbeats on the ticker interval.
// Blocks until ctx is cancelled, then unregisters and returns.
func (r *InstanceRegistry) Start(ctx context.Context) {
	r.register(ctx)

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.register(ctx)
		case <-ctx.Done():
			r.unregister()
			return
		}
	}
}

// register writes this instance's heartbeat to Redis.
func (r *InstanceRegistry) register(ctx context.Context) {
	value := InstanceInfo{
		InstanceID: r.instanceID,
		Timestamp:  time.Now().Unix(),
		Version:    r.version,
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	r.redis.HSet(ctx, instancesKey, r.instanceID, data)
}

// unregister removes this instance from the registry.
// Called during graceful shutdown.
func (r *InstanceRegistry) unregister() {
	ctx := context.Background()
	r.redis.HDel(ctx, instancesKey, r.instanceID)
}

// GetActiveInstances returns a list of instance IDs with heartbeats within the last 60 seconds.
func (r *InstanceRegistry) GetActiveInstances(ctx context.Context) ([]string, error) {
	instances, err := r.redis.HGetAll(ctx, instancesKey).Result()
	if err != nil {
		return nil, err
	}

	active := []string{}
	now := time.Now().Unix()

	for instanceID, data := range instances {
		var info InstanceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}

		if now-info.Timestamp < 60 {
			active = append(active, instanceID)
		}
	}

	return active, nil
}

// GetInstanceInfo returns detailed information about all active instances.
func (r *InstanceRegistry) GetInstanceInfo(ctx context.Context) ([]InstanceInfo, error) {
	instances, err := r.redis.HGetAll(ctx, instancesKey).Result()
	if err != nil {
		return nil, err
	}

	infos := []InstanceInfo{}
	now := time.Now().Unix()

	for _, data := range instances {
		var info InstanceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}

		if now-info.Timestamp < 60 {
			infos = append(infos, info)
		}
	}

	return infos, nil
}
