// chatbuddy 命令行客户端入口
package main

import "chatbuddy/internal/cli/cmd"

func main() {
	cmd.Execute()
}
