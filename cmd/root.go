package cmd

import (
	"github.com/spf13/cobra"

	"job_applier_go/application"
	"job_applier_go/config"
)

var RootCmd = &cobra.Command{
	Use:           "job-applier",
	Short:         "Boss直聘 / 智联招聘 自动投递",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，默认查找 ./config/config.yaml 与 ./config.yaml")

	RootCmd.AddCommand(applyCmd, serveCmd, blacklistCmd, recordsCmd, checkpointCmd)
}

// newApp 读取配置并初始化数据库与服务，调用方负责 Close
func newApp() (*application.Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return application.New(cfg)
}
