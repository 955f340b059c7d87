package utils

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UnlimitedCode 搜索条件“不限”
const UnlimitedCode = "0"

// ResolveFile 依次检查候选路径，其次是可执行文件所在目录，返回第一个存在文件的绝对路径
func ResolveFile(candidates ...string) (string, error) {
	for _, p := range candidates {
		if p == "" || !fileExists(p) {
			continue
		}
		return filepath.Abs(p)
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		for _, p := range candidates {
			if p == "" || filepath.IsAbs(p) {
				continue
			}
			if full := filepath.Join(dir, filepath.Base(p)); fileExists(full) {
				return full, nil
			}
		}
	}
	return "", fmt.Errorf("未找到文件: %s", strings.Join(candidates, ", "))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AppendParam 追加查询参数，空值或不限时返回空串
func AppendParam(name, value string) string {
	if value == "" || value == UnlimitedCode {
		return ""
	}
	return "&" + name + "=" + value
}

// AppendListParam 列表中包含不限时不设置该参数
func AppendListParam(name string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	for _, v := range values {
		if v == UnlimitedCode {
			return ""
		}
	}
	return "&" + name + "=" + strings.Join(values, ",")
}

// FormatDuration 格式化为 "H时m分s秒"
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d时%d分%d秒", hours, minutes, seconds)
}

// SleepCtx 可被 ctx 打断的 sleep
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RandomDuration [lo, hi] 内的随机时长
func RandomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// RandomSleep 随机等待 [lo, hi]
func RandomSleep(ctx context.Context, lo, hi time.Duration) error {
	return SleepCtx(ctx, RandomDuration(lo, hi))
}
