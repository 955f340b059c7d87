package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "登录态 Cookie",
}

var cookiesClearCmd = &cobra.Command{
	Use:   "clear <platform>",
	Short: "清空平台 Cookie，下次启动需重新扫码",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if !app.Cookies.ValidatePlatform(args[0]) {
			return fmt.Errorf("不支持的平台: %s", args[0])
		}
		if err := app.Cookies.ClearCookieByPlatform(args[0], "cli logout"); err != nil {
			return err
		}
		fmt.Printf("已清空 %s Cookie\n", args[0])
		return nil
	},
}

func init() {
	cookiesCmd.AddCommand(cookiesClearCmd)
	RootCmd.AddCommand(cookiesCmd)
}
