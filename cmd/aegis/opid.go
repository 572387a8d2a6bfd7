package aegis

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodian-labs/aegis"
	"github.com/custodian-labs/aegis/types"
)

func buildOpIDCmd() *cobra.Command {
	var batchPath string

	cmd := &cobra.Command{
		Use:   "opid",
		Short: "Compute the operation identifier of a call batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchPath == "" {
				return errors.New("--batch is required")
			}

			f, err := os.Open(batchPath)
			if err != nil {
				return err
			}
			defer f.Close()

			batch, err := types.NewCallBatch(f)
			if err != nil {
				return err
			}

			id, err := aegis.HashOperationBatch(batch.Calls, batch.Predecessor, batch.Salt)
			if err != nil {
				return err
			}

			fmt.Printf("operation id: %s\n", id)

			return nil
		},
	}

	cmd.Flags().StringVar(&batchPath, "batch", "", "Path to the call batch JSON file")

	return cmd
}
