package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stitcherp/internal/dto"
	"stitcherp/internal/ledger"
	"stitcherp/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	progressCacheTTL = 60 * time.Second

	OnTime      = "On Time"
	DelayedNote = "Delayed"
)

// ProgressService serves the derived per-allocation read model. Reads go
// through a short-TTL Redis cache that mutation paths invalidate after their
// transaction commits; cache failures are never fatal.
type ProgressService interface {
	Get(ctx context.Context, workOrderID, machineID uuid.UUID) (*dto.AllocationProgressResponse, error)
	ProgressCache
}

type progressService struct {
	repo   repository.AllocationRepository
	ledger ProductionLedger
	rdb    *redis.Client
}

func NewProgressService(repo repository.AllocationRepository, ledger ProductionLedger, rdb *redis.Client) ProgressService {
	return &progressService{repo: repo, ledger: ledger, rdb: rdb}
}

func progressCacheKey(workOrderID, machineID uuid.UUID) string {
	return fmt.Sprintf("progress:%s:%s", workOrderID, machineID)
}

func (s *progressService) Get(ctx context.Context, workOrderID, machineID uuid.UUID) (*dto.AllocationProgressResponse, error) {
	key := progressCacheKey(workOrderID, machineID)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var resp dto.AllocationProgressResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	alloc, err := s.repo.FindByPair(ctx, workOrderID, machineID)
	if err != nil {
		return nil, fmt.Errorf("allocation %s/%s not found", workOrderID, machineID)
	}
	totals, err := s.ledger.TotalProduced(ctx, s.repo.DB(), workOrderID, machineID)
	if err != nil {
		return nil, err
	}

	actualDays := ledger.SpanDays(totals.FirstDate, totals.LastDate)
	onTime := OnTime
	if alloc.EstimatedDays > 0 && actualDays > alloc.EstimatedDays {
		onTime = DelayedNote
	}

	resp := &dto.AllocationProgressResponse{
		WorkOrderID:       alloc.WorkOrderID.String(),
		MachineID:         alloc.MachineID.String(),
		AssignedStitches:  alloc.AssignedStitches,
		PendingStitches:   alloc.PendingStitches,
		CompletedStitches: alloc.AssignedStitches.Sub(alloc.PendingStitches),
		AvgStitchesPerDay: alloc.AvgStitchesPerDay,
		EstimatedDays:     alloc.EstimatedDays,
		ActualDaysUsed:    actualDays,
		Status:            alloc.Status,
		OnTimeStatus:      onTime,
	}
	if alloc.CompletedAt != nil {
		t := alloc.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &t
	}

	// Populate cache. Best effort, ignore errors.
	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), key, b, progressCacheTTL).Err()
		}
	}
	return resp, nil
}

// Invalidate drops the cached progress entry for the pair. Best effort: a
// dead cache only means the next read is served from the database.
func (s *progressService) Invalidate(ctx context.Context, workOrderID, machineID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, progressCacheKey(workOrderID, machineID)).Err()
}
