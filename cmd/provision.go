package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"splpay/config"
	"splpay/internal/cluster"
	"splpay/internal/spltoken"
)

var provisionOwnersFile string

// provisionCmd batch-ensures associated token accounts. Owners come
// from positional args or, with --owners-file, one address per line.
var provisionCmd = &cobra.Command{
	Use:   "provision [owner...]",
	Short: "Create missing token accounts for a list of owner addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProvision(cmd.Context(), args)
	},
}

func init() {
	provisionCmd.Flags().StringVar(&provisionOwnersFile, "owners-file", "", "file with one owner address per line")
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(ctx context.Context, args []string) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Solana.PayerSecret == "" {
		return fmt.Errorf("solana.payer_secret is required for provisioning")
	}

	cl, err := cluster.ByName(cfg.Solana.Cluster)
	if err != nil {
		return err
	}
	if cfg.Solana.RPCURL != "" {
		cl.RPCURL = cfg.Solana.RPCURL
	}
	mint := cl.USDCMint
	if cfg.Solana.USDCMint != "" {
		if mint, err = solana.PublicKeyFromBase58(cfg.Solana.USDCMint); err != nil {
			return fmt.Errorf("parse usdc_mint: %w", err)
		}
	}

	owners, err := collectOwners(args)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return fmt.Errorf("no owner addresses given")
	}

	payer, err := spltoken.NewLocalSigner(cfg.Solana.PayerSecret)
	if err != nil {
		return err
	}
	prov := spltoken.NewProvisioner(cluster.NewClient(cl.RPCURL, log), log)

	var created, skipped, failed int
	for _, owner := range owners {
		result, err := prov.EnsureAccount(ctx, payer, owner, mint)
		if err != nil {
			failed++
			log.WithError(err).WithField("owner", owner.String()).Error("provisioning failed")
			continue
		}
		if result.Created {
			created++
			fmt.Printf("%s -> %s created (%s)\n", owner, result.Account, cl.ExplorerTxURL(result.Signature))
		} else {
			skipped++
			fmt.Printf("%s -> %s already exists\n", owner, result.Account)
		}
	}
	fmt.Printf("done: %d created, %d existing, %d failed\n", created, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d owners failed", failed, len(owners))
	}
	return nil
}

func collectOwners(args []string) ([]solana.PublicKey, error) {
	lines := append([]string(nil), args...)
	if provisionOwnersFile != "" {
		f, err := os.Open(provisionOwnersFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	owners := make([]solana.PublicKey, 0, len(lines))
	for _, line := range lines {
		owner, err := solana.PublicKeyFromBase58(line)
		if err != nil {
			return nil, fmt.Errorf("invalid owner address %q: %w", line, err)
		}
		owners = append(owners, owner)
	}
	return owners, nil
}
