package aegis

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodian-labs/aegis"
)

func buildRecoveryCmd() *cobra.Command {
	var paramsPath string

	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Work with RecoverySpell instances",
	}

	cmd.PersistentFlags().StringVar(&paramsPath, "params", "", "Path to the recovery parameters JSON file")

	cmd.AddCommand(buildRecoveryDigestCmd(&paramsPath))
	cmd.AddCommand(buildRecoverySignCmd(&paramsPath))
	cmd.AddCommand(buildRecoverySignLedgerCmd(&paramsPath))

	return cmd
}

func buildRecoveryDigestCmd(paramsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Print the signable recovery digest for an instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadRecoveryParams(*paramsPath)
			if err != nil {
				return err
			}

			digest, err := params.Digest()
			if err != nil {
				return err
			}

			fmt.Printf("recovery digest: %s\n", digest)

			return nil
		},
	}
}

func buildRecoverySignCmd(paramsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sign",
		Short: "Sign the recovery digest with a raw private key",
		Long:  `Configure a private key in a .env file (using the PRIVATE_KEY var) and sign the instance digest with it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadRecoveryParams(*paramsPath)
			if err != nil {
				return err
			}

			pk, err := loadPrivateKey()
			if err != nil {
				return err
			}

			signer := aegis.NewPrivateKeySigner(pk)
			sig, err := aegis.SignRecovery(*params, signer)
			if err != nil {
				return err
			}

			addr, err := signer.GetAddress()
			if err != nil {
				return err
			}

			fmt.Printf("signer:  %s\n", addr)
			fmt.Printf("v: %d\nr: %s\ns: %s\n", sig.V, sig.R, sig.S)

			return nil
		},
	}
}

func buildRecoverySignLedgerCmd(paramsPath *string) *cobra.Command {
	var rawPath []uint

	cmd := &cobra.Command{
		Use:   "sign-ledger",
		Short: "Sign the recovery digest with a Ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := loadRecoveryParams(*paramsPath)
			if err != nil {
				return err
			}

			derivationPath := make([]uint32, len(rawPath))
			for i, p := range rawPath {
				derivationPath[i] = uint32(p)
			}

			signer := aegis.NewLedgerSigner(derivationPath)
			sig, err := aegis.SignRecovery(*params, signer)
			if err != nil {
				return err
			}

			fmt.Printf("v: %d\nr: %s\ns: %s\n", sig.V, sig.R, sig.S)

			return nil
		},
	}

	cmd.Flags().UintSliceVar(&rawPath, "derivation-path", []uint{44, 60, 0, 0, 0}, "Ledger derivation path")

	return cmd
}

func loadRecoveryParams(path string) (*aegis.RecoveryParams, error) {
	if path == "" {
		return nil, errors.New("--params is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return aegis.NewRecoveryParams(f)
}

func loadPrivateKey() (*ecdsa.PrivateKey, error) {
	if err := godotenv.Load(".env"); err != nil {
		return nil, err
	}

	pk := os.Getenv("PRIVATE_KEY")
	if pk == "" {
		return nil, errors.New("PRIVATE_KEY not found in .env file")
	}

	return crypto.HexToECDSA(pk)
}
