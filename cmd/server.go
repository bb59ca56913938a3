package cmd

import (
	"msgcard/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动贺卡服务器",
	Long:  `启动HTTP服务器，提供贺卡查询、字幕、管理接口以及 websocket 预览会话`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
