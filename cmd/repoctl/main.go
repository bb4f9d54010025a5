// repoctl 是基于条件组合仓储的表查询命令行工具。
//
// 示例：
//
//	repoctl list notes --where owner_id:=:1 --order created_at:desc --limit 20
//	repoctl find notes 42
//	repoctl count notes --not-deleted
//	repoctl update notes 42 --set title=hello
//	repoctl delete notes --where owner_id:=:7
package main

import (
	"fmt"
	"os"

	apperrors "repokit/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", apperrors.GetErrorCode(err), err)
		os.Exit(1)
	}
}
