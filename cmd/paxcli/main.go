// Command paxcli is the client driver: `paxcli <uid> <value>
// <proposer_hint>` proposes a value to the cluster, prints the decided
// value, and exits 0 once SET arrives.
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
	var hostsPath string

	cmd := &cobra.Command{
		Use:   "paxcli <uid> <value> <proposer_hint>",
		Short: "Propose a value to a single-decree Paxos cluster and print the decision",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			uidInt, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("paxcli: uid must be an integer: %w", err)
			}
			valueInt, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("paxcli: value must be an integer: %w", err)
			}
			hint, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("paxcli: proposer_hint must be an integer: %w", err)
			}

			uid := types.UID(uidInt)
			table, err := hosttable.Load(hostsPath)
			if err != nil {
				return err
			}
			if int(uid) < 0 || int(uid) >= len(table.Hosts) {
				return fmt.Errorf("paxcli: uid %d out of range for %d hosts", uid, len(table.Hosts))
			}

			log := definition.NewLogger(logrus.Fields{"uid": uid, "component": "paxcli"})

			transport, err := core.NewUDPTransport(table.Entry(uid), log)
			if err != nil {
				return err
			}
			defer transport.Close()

			client := core.NewClient(uid, table, transport, log, types.Value(valueInt), hint)
			decided, err := client.Run()
			if err != nil {
				return err
			}
			fmt.Println(decided)
			return nil
		},
	}

	cmd.Flags().StringVar(&hostsPath, "hosts", "hosts.txt", "path to the host table file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
