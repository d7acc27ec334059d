// Command walletctl is the terminal frontend of the registry. It connects a
// wallet over JSON-RPC, works out whether the account is the admin and shows
// the matching panel: registering students and uploading certificates for
// the admin, looking up one's own record for a student.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cert_registry/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	rpcURL       string
	apiURL       string
	settingsPath string
	adminAddress string
	pollInterval time.Duration
	verbose      bool
}

func newRootCmd(cfg *config.Config, open providerOpener) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "walletctl",
		Short: "Wallet-gated client for the student certificate registry",
		Long: `walletctl connects to a wallet through its JSON-RPC endpoint and decides
the role of the active account by comparing it with the admin address.

Admins register students and upload certificates; students look up their
own record. Account or network changes end the session.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			logrus.SetLevel(logrus.WarnLevel)
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.rpcURL, "rpc", cfg.WalletRPCURL, "wallet JSON-RPC endpoint (http, ws or ipc)")
	flags.StringVar(&opts.apiURL, "api", cfg.APIBaseURL, "registry API base URL")
	flags.StringVar(&opts.settingsPath, "settings", cfg.WalletSettings, "local settings file holding the admin override")
	flags.StringVar(&opts.adminAddress, "admin", cfg.AdminAddress, "admin wallet address")
	flags.DurationVar(&opts.pollInterval, "poll", 2*time.Second, "interval for polling account and network changes")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newConnectCmd(opts, open),
		newWatchCmd(opts, open),
		newSetAdminCmd(opts, open),
		newStudentCmd(opts, open),
		newAdminCmd(opts, open),
	)
	return root
}

func main() {
	cfg := config.LoadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(cfg, dialProvider).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
