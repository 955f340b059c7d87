package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"job_applier_go/automation/jobfilter"
)

var (
	blacklistReason string
	importReason    string
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "管理黑名单（company / recruiter / job / keyword）",
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add <type> <value>",
	Short: "添加黑名单，company 支持 * 通配",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		if !jobfilter.ValidBlacklistType(args[0]) {
			return fmt.Errorf("不支持的黑名单类型: %s", args[0])
		}
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		added, err := app.Filter.Blacklist().Add(args[0], args[1], blacklistReason)
		if err != nil {
			return err
		}
		if added {
			fmt.Printf("已添加 %s: %s\n", args[0], args[1])
		} else {
			fmt.Printf("已存在 %s: %s\n", args[0], args[1])
		}
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <type> <value>",
	Short: "删除黑名单",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Filter.Blacklist().Remove(args[0], args[1])
	},
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出黑名单",
	RunE: func(_ *cobra.Command, _ []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		rows, err := app.BlacklistRepo.FindAll()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tVALUE\tREASON")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Type, r.Value, r.Reason)
		}
		return w.Flush()
	},
}

var blacklistImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "从 YAML 批量导入，格式为 类型: [值, ...]",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		entries, err := parseBlacklistFile(data)
		if err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		added := 0
		for _, e := range entries {
			ok, err := app.Filter.Blacklist().Add(e.Type, e.Value, importReason)
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}
		fmt.Printf("导入 %d 条，新增 %d 条\n", len(entries), added)
		return nil
	},
}

func init() {
	blacklistAddCmd.Flags().StringVar(&blacklistReason, "reason", "", "加入原因")
	blacklistImportCmd.Flags().StringVar(&importReason, "reason", "批量导入", "加入原因")
	blacklistCmd.AddCommand(blacklistAddCmd, blacklistRemoveCmd, blacklistListCmd, blacklistImportCmd)
}

type blacklistEntry struct {
	Type  string
	Value string
}

// parseBlacklistFile 解析 类型 -> 值列表，按类型名排序，跳过空值
func parseBlacklistFile(data []byte) ([]blacklistEntry, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析黑名单文件失败: %w", err)
	}

	types := make([]string, 0, len(raw))
	for typ := range raw {
		if !jobfilter.ValidBlacklistType(typ) {
			return nil, fmt.Errorf("不支持的黑名单类型: %s", typ)
		}
		types = append(types, typ)
	}
	sort.Strings(types)

	var out []blacklistEntry
	for _, typ := range types {
		for _, v := range raw[typ] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, blacklistEntry{Type: typ, Value: v})
			}
		}
	}
	return out, nil
}
