package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"splpay/config"
	"splpay/internal/checkout"
	"splpay/internal/cluster"
	"splpay/internal/handler"
	"splpay/internal/reconcile"
	"splpay/internal/settle"
	"splpay/internal/spltoken"
	"splpay/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the payment API, reconciler and settlement watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
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
	merchant, err := solana.PublicKeyFromBase58(cfg.Solana.MerchantOwner)
	if err != nil {
		return fmt.Errorf("parse merchant_owner: %w", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	orders := store.NewGormStore(db)
	if err := orders.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	net := cluster.NewClient(cl.RPCURL, log)
	relay := checkout.NewRelay(net, cl, log)
	rec := reconcile.New(orders, cfg.PollInterval(), cfg.App.PollMaxAttempts, log)
	watcher := settle.NewWatcher(net, orders, cfg.SettleInterval(), log)
	go watcher.Run(ctx)

	// The payer keypair is optional; without it the admin provisioning
	// endpoint is disabled and everything else still works.
	var payer spltoken.Signer
	var prov *spltoken.Provisioner
	if cfg.Solana.PayerSecret != "" {
		localSigner, err := spltoken.NewLocalSigner(cfg.Solana.PayerSecret)
		if err != nil {
			return err
		}
		payer = localSigner
		prov = spltoken.NewProvisioner(net, log)
	}

	h := handler.New(ctx, orders, relay, rec, prov, payer, merchant, mint,
		uint8(cfg.Solana.USDCDecimals), log)

	r := gin.Default()
	h.RegisterRoutes(r)

	log.WithFields(logrus.Fields{
		"port":    cfg.App.Port,
		"cluster": cl.Name,
		"mint":    mint.String(),
	}).Info("server starting")
	return r.Run(fmt.Sprintf(":%d", cfg.App.Port))
}
