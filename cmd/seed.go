package cmd

import (
	"fmt"
	"os"

	"msgcard/model"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile 批量创建贺卡的 YAML 文件
type seedFile struct {
	CreatedBy string                    `yaml:"createdBy"`
	Cards     []model.CreateCardRequest `yaml:"cards"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <cards.yaml>",
	Short: "从 YAML 文件批量创建贺卡",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := loadSeedFile(args[0])
		if err != nil {
			return err
		}

		svc, _, closeAll, err := openCards()
		if err != nil {
			return err
		}
		defer closeAll()

		rows := make([][]string, 0, len(seed.Cards))
		for i := range seed.Cards {
			c, err := svc.Create(cmd.Context(), &seed.Cards[i], seed.CreatedBy)
			if err != nil {
				return fmt.Errorf("card %d (%s): %w", i+1, seed.Cards[i].DisplayName, err)
			}
			rows = append(rows, []string{c.ID, c.DisplayName, svc.ShareURL(c.ID)})
		}
		fmt.Println(renderTable([]string{"ID", "Name", "Link"}, rows, nil))
		return nil
	},
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(seed.Cards) == 0 {
		return nil, fmt.Errorf("%s contains no cards", path)
	}
	if seed.CreatedBy == "" {
		seed.CreatedBy = "seed"
	}
	return &seed, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
