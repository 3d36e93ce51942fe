package session

import (
	"context"
	"sync"
	"time"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/repository"
	"hakawati-story-api/pkg/logger"
	"hakawati-story-api/pkg/metrics"
)

// ToRecord 把生成结果打包成会话记录，纯函数，不做 I/O
func ToRecord(doc *entity.StoryDocument, req entity.StoryRequest, owner entity.Owner, now time.Time) *entity.StoryRecord {
	proverb := doc.Proverb()
	return &entity.StoryRecord{
		OwnerID:          owner.ID,
		OwnerEmail:       owner.Email,
		OwnerName:        owner.DisplayName,
		ChildName:        req.ChildName,
		StoryTitle:       doc.Title(),
		CompletionStatus: entity.CompletionGenerated,
		Badge:            doc.Badge(),
		ProverbText:      proverb.Text,
		ProverbMeaning:   proverb.Explanation,
		Age:              req.Age,
		Gender:           req.Gender,
		Dialect:          req.Dialect,
		Length:           req.Length,
		PageCount:        doc.PageCount(),
		MoralPresetID:    req.MoralPresetID,
		MoralTopic:       req.MoralTopic,
		WorldPresetID:    req.WorldPresetID,
		World:            req.World,
		SidekickID:       req.SidekickID,
		Vocabulary:       doc.Vocabulary(),
		CreatedAt:        now.UTC(),
	}
}

// RecordPublisher 异步持久化通道（Redis Stream）
type RecordPublisher interface {
	PublishRecordSaved(ctx context.Context, record *entity.StoryRecord) error
	PublishRecordCompleted(ctx context.Context, recordID string, at time.Time) error
}

const (
	defaultRecordTimeout = 5 * time.Second
	defaultRecordBacklog = 256
)

type recordOp struct {
	ctx      context.Context
	record   *entity.StoryRecord
	recordID string
	at       time.Time
}

// Recorder 尽力而为地持久化会话记录：失败只记日志和指标，从不回传给播放流程。
// 写入在单个后台 goroutine 中按提交顺序执行，每次写入有超时；队列满时丢弃并计数。
type Recorder struct {
	publisher RecordPublisher
	repo      repository.StoryRecordRepository
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	ops    chan recordOp
	wg     sync.WaitGroup
}

// NewRecorder publisher 非空时走消息流，否则直接写库
func NewRecorder(publisher RecordPublisher, repo repository.StoryRecordRepository) *Recorder {
	return newRecorder(publisher, repo, defaultRecordTimeout, defaultRecordBacklog)
}

func newRecorder(publisher RecordPublisher, repo repository.StoryRecordRepository, timeout time.Duration, backlog int) *Recorder {
	r := &Recorder{
		publisher: publisher,
		repo:      repo,
		timeout:   timeout,
		ops:       make(chan recordOp, backlog),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// Persist 提交新记录，立即返回
func (r *Recorder) Persist(ctx context.Context, record *entity.StoryRecord) {
	if r == nil {
		return
	}
	r.submit(ctx, recordOp{record: record, recordID: record.ID})
}

// MarkCompleted 读者到达奖励页后提交完成状态，立即返回
func (r *Recorder) MarkCompleted(ctx context.Context, recordID string, at time.Time) {
	if r == nil {
		return
	}
	r.submit(ctx, recordOp{recordID: recordID, at: at})
}

// Close 停止接收新写入，等待队列中的写入完成
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ops)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) submit(ctx context.Context, op recordOp) {
	op.ctx = context.WithoutCancel(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		logger.Warn(ctx, "recorder closed, session record dropped", "record_id", op.recordID)
		return
	}
	select {
	case r.ops <- op:
	default:
		metrics.RecordPersistTotal.WithLabelValues("queue", "dropped").Inc()
		logger.Warn(ctx, "record backlog full, session record dropped", "record_id", op.recordID)
	}
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for op := range r.ops {
		r.run(op)
	}
}

func (r *Recorder) run(op recordOp) {
	ctx, cancel := context.WithTimeout(op.ctx, r.timeout)
	defer cancel()

	if op.record != nil {
		path, err := r.persist(ctx, op.record)
		r.observe(ctx, path, err, "record_id", op.recordID)
		return
	}
	path, err := r.markCompleted(ctx, op.recordID, op.at)
	r.observe(ctx, path, err, "record_id", op.recordID, "status", string(entity.CompletionCompleted))
}

func (r *Recorder) persist(ctx context.Context, record *entity.StoryRecord) (string, error) {
	if r.publisher != nil {
		return "stream", r.publisher.PublishRecordSaved(ctx, record)
	}
	if r.repo != nil {
		return "direct", r.repo.Save(ctx, record)
	}
	return "none", nil
}

func (r *Recorder) markCompleted(ctx context.Context, recordID string, at time.Time) (string, error) {
	if r.publisher != nil {
		return "stream", r.publisher.PublishRecordCompleted(ctx, recordID, at)
	}
	if r.repo != nil {
		return "direct", r.repo.MarkCompleted(ctx, recordID, at)
	}
	return "none", nil
}

func (r *Recorder) observe(ctx context.Context, path string, err error, args ...any) {
	if path == "none" {
		return
	}
	if err != nil {
		metrics.RecordPersistTotal.WithLabelValues(path, "error").Inc()
		logger.Error(ctx, "failed to persist session record", err, append(args, "path", path)...)
		return
	}
	metrics.RecordPersistTotal.WithLabelValues(path, "success").Inc()
}
