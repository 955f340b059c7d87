package zhilian

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"job_applier_go/utils"
)

// RunFunc 执行一次投递
type RunFunc func(ctx context.Context) (Result, error)

// Schedule 定时执行任务，直到 ctx 结束
func Schedule(ctx context.Context, run RunFunc, interval time.Duration) error {
	for round := 1; ; round++ {
		res, err := run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Errorf("执行任务失败: %v", err)
		} else {
			log.WithField("round", round).Infof("本轮投递 %d 个岗位", res.Success)
		}

		if interval <= 0 {
			return err
		}
		log.Infof("%s 后开始下一轮", interval)
		if err := utils.SleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}
