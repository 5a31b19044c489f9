package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/codespectre/internal/signing"
)

var verifyFlags struct {
	key       string
	signature string
}

var verifyCmd = &cobra.Command{
	Use:   "verify <report>",
	Short: "Check the detached signature of a report",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlags.key, "key", "", "Armored OpenPGP public key or keyring")
	verifyCmd.Flags().StringVar(&verifyFlags.signature, "signature", "", "Signature file (default: <report>.asc)")
	_ = verifyCmd.MarkFlagRequired("key")
}

func runVerify(cmd *cobra.Command, args []string) error {
	keyring, err := signing.ReadKeyRing(verifyFlags.key)
	if err != nil {
		return err
	}

	sigPath := verifyFlags.signature
	if sigPath == "" {
		sigPath = args[0] + signing.SignatureExt
	}

	msg, err := os.Open(args[0]) // #nosec G304 -- paths are supplied by the user
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = msg.Close() }()

	sig, err := os.Open(sigPath) // #nosec G304 -- paths are supplied by the user
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer func() { _ = sig.Close() }()

	signer, err := signing.Verify(keyring, msg, sig)
	if err != nil {
		return err
	}
	name := "unknown identity"
	if id := signer.PrimaryIdentity(); id != nil {
		name = id.Name
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Good signature from %s (%X)\n", name, signer.PrimaryKey.Fingerprint)
	return nil
}
