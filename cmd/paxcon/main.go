// Command paxcon is the consensus driver: `paxcon <uid>` runs one
// consensus node and exits 0 once it observes TERM. It is a thin adapter
// (argument parsing, host-table loading, transport construction) around
// the core Node the rest of this repository implements.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/davemillward/paxring/internal/hosttable"
	"github.com/davemillward/paxring/pkg/paxring/core"
	"github.com/davemillward/paxring/pkg/paxring/definition"
	"github.com/davemillward/paxring/pkg/paxring/types"
)

func main() {
	var (
		hostsPath string
		debug     bool
		backoff   bool
	)

	cmd := &cobra.Command{
		Use:   "paxcon <uid>",
		Short: "Run a single-decree Paxos consensus node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uidInt, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("paxcon: uid must be an integer: %w", err)
			}
			uid := types.UID(uidInt)

			table, err := hosttable.Load(hostsPath)
			if err != nil {
				return err
			}
			if int(uid) < 0 || int(uid) >= len(table.Hosts) {
				return fmt.Errorf("paxcon: uid %d out of range for %d hosts", uid, len(table.Hosts))
			}

			log := definition.NewLogger(logrus.Fields{"uid": uid, "component": "paxcon"})
			log.ToggleDebug(debug)

			transport, err := core.NewUDPTransport(table.Entry(uid), log)
			if err != nil {
				return err
			}
			defer transport.Close()

			metrics := definition.NewMetrics(nil)

			node := core.NewNode(uid, table, transport, log, metrics)
			node.SetBackoff(backoff)
			return node.Run()
		},
	}

	cmd.Flags().StringVar(&hostsPath, "hosts", "hosts.txt", "path to the host table file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	cmd.Flags().BoolVar(&backoff, "backoff", false, "enable the NACK-triggered back-off/retry path")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
