package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"msgcard/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioRecursive bool
	minioTTL       time.Duration
	minioCardID    string
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看贺卡媒体所在的存储桶：列出文件、生成签名地址、上传媒体或字幕文件。`,
}

var minioListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出存储桶中的文件",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		objects, stats, err := store.List(cmd.Context(), minioPrefix, minioRecursive)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(objects))
		for _, obj := range objects {
			rows = append(rows, []string{
				obj.Key,
				storage.FormatSize(obj.Size),
				obj.ContentType,
				obj.LastModified.Format("2006-01-02 15:04:05"),
			})
		}
		fmt.Println(renderTable([]string{"Key", "Size", "Type", "Modified"}, rows,
			[]columnAlignment{alignLeft, alignRight}))
		fmt.Printf("%d objects, %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

var minioPresignCmd = &cobra.Command{
	Use:   "presign <key>",
	Short: "生成带有效期的下载地址",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		ttl := minioTTL
		if ttl <= 0 {
			ttl = cfg.PresignTTL
		}
		u, err := store.PresignGet(cmd.Context(), args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	},
}

var minioPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "上传媒体或字幕文件，输出可用于创建贺卡的 key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		key := storage.ObjectKey(minioCardID, filepath.Base(args[0]))
		if _, err := store.Put(cmd.Context(), key, f, info.Size(), ""); err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

func openStore(ctx context.Context) (*storage.Store, error) {
	fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
	store, err := storage.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("无法连接到MinIO: %w", err)
	}
	return store, nil
}

func init() {
	minioListCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "文件前缀")
	minioListCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", true, "递归列出")
	minioPresignCmd.Flags().DurationVar(&minioTTL, "ttl", 0, "有效期，默认使用 PRESIGN_TTL")
	minioPutCmd.Flags().StringVar(&minioCardID, "card", "", "归属的贺卡 id（可选）")

	minioCmd.AddCommand(minioListCmd, minioPresignCmd, minioPutCmd)
	rootCmd.AddCommand(minioCmd)
}
