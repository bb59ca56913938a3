package cmd

import (
	"fmt"

	"msgcard/core/card"
	"msgcard/logger"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var linkCopy bool

var linkCmd = &cobra.Command{
	Use:   "link <card-id>",
	Short: "输出贺卡分享链接",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if !card.ValidID(id) {
			return fmt.Errorf("%s: %w", id, card.ErrNotFound)
		}

		svc, repo, closeAll, err := openCards()
		if err != nil {
			return err
		}
		defer closeAll()

		exists, err := repo.ExistsByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s: %w", id, card.ErrNotFound)
		}

		link := svc.ShareURL(id)
		fmt.Println(link)
		if linkCopy {
			if err := clipboard.WriteAll(link); err != nil {
				logger.Warn("复制到剪贴板失败", logger.ErrorField(err))
			} else {
				fmt.Println("已复制到剪贴板")
			}
		}
		return nil
	},
}

func init() {
	linkCmd.Flags().BoolVarP(&linkCopy, "copy", "c", false, "复制到剪贴板")
	rootCmd.AddCommand(linkCmd)
}
