package main

import (
	"fmt"
	"io"
	"os"

	"github.com/canopy-network/liquidityx/pkg/logging"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:          "lxctl",
		Short:        "inspect pool datums, reduce blocks offline and query liquidityx state",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.NewConsole(c.logLevel)
			if err != nil {
				return err
			}
			c.logger = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(c.decodeDatumCmd())
	root.AddCommand(c.reduceCmd())
	root.AddCommand(c.tipCmd())
	root.AddCommand(c.pairsCmd())
	return root
}

// writeJSON prints v as one JSON line.
func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
