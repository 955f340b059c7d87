package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	recordsStatus string
	recordsLimit  int
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "查看投递记录",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "最近的投递记录",
	RunE: func(_ *cobra.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		page, err := app.Records.List(recordsStatus, recordsLimit, 0)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSTATUS\tCOMPANY\tJOB\tSALARY")
		for _, r := range page.Records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.AppliedAt.Format(time.DateTime), r.Status, r.Company, r.JobTitle, r.Salary)
		}
		fmt.Fprintf(w, "共 %d 条\n", page.Total)
		return w.Flush()
	},
}

var recordsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "投递统计与剩余配额",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		st, err := app.Records.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("总计 %d  成功 %d  失败 %d  待定 %d  成功率 %.2f%%\n",
			st.Total, st.Success, st.Failed, st.Pending, st.SuccessRate)

		quota, err := app.Throttler.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("今日剩余 %d  本小时剩余 %d  当前速率 %d/分钟\n",
			quota.RemainingToday, quota.RemainingHour, quota.CurrentRate)

		summary, err := app.Filter.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("已投递岗位 %d  今日 %d  公司 %d  黑名单 %v\n",
			summary.TotalApplied, summary.AppliedToday, summary.AppliedCompanies, summary.Blacklist)
		return nil
	},
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "断点续传检查点",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出未完成任务的检查点",
	RunE: func(_ *cobra.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		cps, err := app.Checkpoints.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tUPDATED\tSTATE")
		for _, cp := range cps {
			fmt.Fprintf(w, "%s\t%s\t%s\n", cp.TaskID, cp.Timestamp.Format(time.DateTime), cp.State)
		}
		return w.Flush()
	},
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear <task>",
	Short: "删除检查点，下次投递从头开始",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Checkpoints.Delete(args[0])
	},
}

func init() {
	recordsListCmd.Flags().StringVar(&recordsStatus, "status", "", "按状态过滤: success / failed / pending")
	recordsListCmd.Flags().IntVarP(&recordsLimit, "limit", "n", 20, "条数")
	recordsCmd.AddCommand(recordsListCmd, recordsStatsCmd)
	checkpointCmd.AddCommand(checkpointListCmd, checkpointClearCmd)
}
