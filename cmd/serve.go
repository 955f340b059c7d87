package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"job_applier_go/worker/playwright_manager"
)

var serveNoBrowser bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 接口，投递任务通过 /api/apply/start 触发",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "不启动浏览器，只提供记录与统计接口")
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if !serveNoBrowser {
		if err := app.InitBrowser(); err != nil {
			return err
		}
		app.OnLoginChange(func(change playwright_manager.LoginStatusChange) {
			log.WithField("platform", change.Platform).Infof("登录状态变化: %v", change.IsLoggedIn)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	err = app.Server().Serve(ctx, app.Config.Server.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
