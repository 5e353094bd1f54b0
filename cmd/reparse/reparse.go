package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"profile-insight-go/internal/profiletext"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// submissionStore 重解析需要的存储操作，*storage.MySQL 实现了它
type submissionStore interface {
	ListSubmissionIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	GetSubmission(ctx context.Context, submissionID string) (*models.ProfileSubmission, error)
	UpdateSubmissionRecord(ctx context.Context, submissionID string, record types.ProfileRecord) error
}

type reparseStats struct {
	Total   int
	Changed int
	Failed  int
}

// reparser 用当前解析规则重新解析已保存的原始文本，结果有变化时写回
type reparser struct {
	store       submissionStore
	concurrency int
	batchSize   int
	pause       time.Duration
	dryRun      bool
	logger      zerolog.Logger
}

// Run 按 submission_id 顺序分批处理全部提交，单条失败只计数
func (r *reparser) Run(ctx context.Context) (reparseStats, error) {
	var (
		stats reparseStats
		mu    sync.Mutex
		after string
	)
	batch := r.batchSize
	if batch <= 0 {
		batch = 100
	}

	for {
		ids, err := r.store.ListSubmissionIDs(ctx, after, batch)
		if err != nil {
			return stats, err
		}
		if len(ids) == 0 {
			return stats, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(r.concurrency, 1))
		for _, id := range ids {
			g.Go(func() error {
				changed, err := r.reparseOne(gctx, id)
				mu.Lock()
				defer mu.Unlock()
				stats.Total++
				switch {
				case err != nil:
					stats.Failed++
					r.logger.Warn().Err(err).Str("submission_id", id).Msg("重解析失败")
				case changed:
					stats.Changed++
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return stats, err
		}
		after = ids[len(ids)-1]
		r.logger.Info().Str("last_id", after).Int("processed", stats.Total).Msg("批次处理完成")

		if len(ids) < batch {
			return stats, nil
		}
		if r.pause > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(r.pause):
			}
		}
	}
}

func (r *reparser) reparseOne(ctx context.Context, id string) (bool, error) {
	submission, err := r.store.GetSubmission(ctx, id)
	if err != nil {
		return false, err
	}
	if submission.RawText == "" {
		return false, nil
	}
	old, err := submission.ProfileRecord()
	if err != nil {
		return false, err
	}

	fresh := profiletext.ParseProfileText(submission.RawText)
	if cmp.Equal(old, fresh, cmpopts.EquateEmpty()) {
		return false, nil
	}
	r.logger.Debug().Str("submission_id", id).Str("diff", cmp.Diff(old, fresh, cmpopts.EquateEmpty())).Msg("档案记录有变化")

	if r.dryRun {
		return true, nil
	}
	if err := r.store.UpdateSubmissionRecord(ctx, id, fresh); err != nil {
		return false, fmt.Errorf("写回档案记录失败: %w", err)
	}
	return true, nil
}
