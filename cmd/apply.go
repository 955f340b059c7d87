package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"job_applier_go/application"
	"job_applier_go/model"
	"job_applier_go/worker/boss"
	"job_applier_go/worker/zhilian"
)

var (
	applyPlatform string
	applyEvery    time.Duration
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "执行一轮投递，--every 时按间隔循环",
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyPlatform, "platform", "p", string(model.PlatformBoss), "投递平台: boss / zhilian")
	applyCmd.Flags().DurationVar(&applyEvery, "every", 0, "循环间隔，0 表示只执行一次")
}

func runApply(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	run, err := applyFunc(app, applyPlatform)
	if err != nil {
		return err
	}
	err = zhilian.Schedule(ctx, run, applyEvery)
	if ctx.Err() != nil {
		log.Info("收到退出信号，投递已停止")
		return nil
	}
	return err
}

func applyFunc(app *application.Application, platform string) (zhilian.RunFunc, error) {
	switch model.Platform(platform) {
	case model.PlatformBoss:
		if err := app.InitBrowser(); err != nil {
			return nil, err
		}
		return func(ctx context.Context) (zhilian.Result, error) {
			return zhilian.Result{}, app.BossJobs.ExecuteDelivery(ctx, logProgress)
		}, nil
	case model.PlatformZhilian:
		z := app.Zhilian()
		return z.Run, nil
	default:
		return nil, fmt.Errorf("不支持的平台: %s", platform)
	}
}

func logProgress(msg boss.JobProgressMessage) {
	entry := log.WithField("platform", msg.Platform)
	if msg.Current != nil && msg.Total != nil {
		entry = entry.WithField("progress", fmt.Sprintf("%d/%d", *msg.Current, *msg.Total))
	}
	switch msg.Type {
	case "error":
		entry.Error(msg.Message)
	case "warning":
		entry.Warn(msg.Message)
	default:
		entry.Info(msg.Message)
	}
}
