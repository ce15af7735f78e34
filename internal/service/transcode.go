package service

import (
	"context"
	"errors"
	"time"

	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	ErrNoFileName = errors.New("file name is required")
	ErrQueueFull  = errors.New("job queue full")
)

// TaskRunner runs the actual processing task for a submitted file.
// The pipeline treats it as opaque: it only cares about the progress
// reports and the final error.
type TaskRunner interface {
	Run(ctx context.Context, fileName string, report func(percent int)) error
}

type transcodeJob struct {
	owner    string
	fileName string
}

// Pipeline launches one background transcoding task per submitted
// file and drives its progress into the metadata service. Submissions
// never block on the task itself.
type Pipeline struct {
	Meta   *Metadata
	Runner TaskRunner

	jobs    chan *transcodeJob
	workers int
}

func NewPipeline(meta *Metadata, runner TaskRunner) *Pipeline {
	maxJobs := viper.GetInt("transcode.max_jobs")
	workers := viper.GetInt("transcode.workers")

	zap.L().Debug("Initializing transcode pipeline",
		zap.Int("max_jobs", maxJobs),
		zap.Int("workers", workers))

	return &Pipeline{
		Meta:    meta,
		Runner:  runner,
		jobs:    make(chan *transcodeJob, maxJobs),
		workers: workers,
	}
}

func (p *Pipeline) StartWorkerPool() {
	for range p.workers {
		go p.worker()
	}
}

func (p *Pipeline) worker() {
	for job := range p.jobs {
		err := p.Runner.Run(context.Background(), job.fileName, func(percent int) {
			if percent <= 0 || percent >= 100 {
				return
			}

			if err := p.Meta.SaveProgress(context.Background(), job.owner, job.fileName, percent, model.StatusProcessing); err != nil {
				zap.L().Warn("Failed to save progress update",
					zap.String("user", job.owner),
					zap.String("file", job.fileName),
					zap.Error(err))
			}
		})

		p.finish(job, err)
	}
}

// Submit validates the submission, records the initial metadata and
// progress, and queues the processing task. It returns the tracking
// id (the file name) immediately, the task outcome is only observable
// through progress reads and the live channel.
func (p *Pipeline) Submit(ctx context.Context, owner, fileName string) (string, error) {
	if fileName == "" {
		return "", ErrNoFileName
	}

	if err := p.Meta.SaveActivity(ctx, owner, "Started processing file: "+fileName); err != nil {
		zap.L().Warn("Failed to save activity entry", zap.String("user", owner), zap.Error(err))
	}

	meta := model.FileMetadata{
		Owner:      owner,
		FileName:   fileName,
		UploadTime: time.Now().UTC(),
		Status:     model.StatusUploaded,
	}

	if err := p.Meta.SaveFileMetadata(ctx, meta); err != nil {
		return "", err
	}

	if err := p.Meta.SaveProgress(ctx, owner, fileName, 0, model.StatusStarted); err != nil {
		return "", err
	}

	job := &transcodeJob{owner: owner, fileName: fileName}

	select {
	case p.jobs <- job:
	default:
		// The submission is already recorded, so close it out through
		// the same terminal path a failed task takes.
		p.finish(job, ErrQueueFull)
		return "", ErrQueueFull
	}

	return fileName, nil
}

// finish writes the terminal progress state and activity entry. Every
// exit path of a task ends up here, success or not, so a submitted
// file always reaches completed or error.
func (p *Pipeline) finish(job *transcodeJob, taskErr error) {
	ctx := context.Background()

	if taskErr != nil {
		zap.L().Error("Transcoding failed",
			zap.String("user", job.owner),
			zap.String("file", job.fileName),
			zap.Error(taskErr))

		if err := p.Meta.SaveProgress(ctx, job.owner, job.fileName, 0, model.StatusError); err != nil {
			zap.L().Error("Failed to record error state", zap.String("file", job.fileName), zap.Error(err))
		}

		if err := p.Meta.SaveActivity(ctx, job.owner, "Transcoding failed for file: "+job.fileName); err != nil {
			zap.L().Warn("Failed to save activity entry", zap.String("user", job.owner), zap.Error(err))
		}

		return
	}

	if err := p.Meta.SaveProgress(ctx, job.owner, job.fileName, 100, model.StatusCompleted); err != nil {
		zap.L().Error("Failed to record completed state", zap.String("file", job.fileName), zap.Error(err))
	}

	if err := p.Meta.SaveActivity(ctx, job.owner, "Transcoding completed for file: "+job.fileName); err != nil {
		zap.L().Warn("Failed to save activity entry", zap.String("user", job.owner), zap.Error(err))
	}

	zap.L().Debug("Transcoding finished", zap.String("file", job.fileName))
}
