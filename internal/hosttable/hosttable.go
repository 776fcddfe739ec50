// Package hosttable parses the host table file every process loads at
// startup: three header lines giving the Proposers/Acceptors/Learners
// counts, followed by one "host port kind" line per UID. It is an external
// adapter, not part of the core consensus engine.
package hosttable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// Load reads a host table file from path.
func Load(path string) (types.HostTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.HostTable{}, fmt.Errorf("hosttable: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a host table in the format the driver expects: the first
// three non-empty lines are "proposers N", "acceptors N", "learners N" (in
// that order), and every remaining non-empty line is "host port kind" with
// kind one of "con" or "cli". A line's position among the host rows is its
// UID.
func Parse(r io.Reader) (types.HostTable, error) {
	scanner := bufio.NewScanner(r)

	counts := make(map[string]int, 3)
	order := []string{"proposers", "acceptors", "learners"}
	for _, want := range order {
		line, ok := nextLine(scanner)
		if !ok {
			return types.HostTable{}, fmt.Errorf("hosttable: missing %q header line", want)
		}
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[0] != want {
			return types.HostTable{}, fmt.Errorf("hosttable: expected %q header, got %q", want, line)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return types.HostTable{}, fmt.Errorf("hosttable: bad count in %q: %w", line, err)
		}
		counts[want] = n
	}

	table := types.HostTable{
		Proposers: counts["proposers"],
		Acceptors: counts["acceptors"],
		Learners:  counts["learners"],
	}

	uid := 0
	for {
		line, ok := nextLine(scanner)
		if !ok {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return types.HostTable{}, fmt.Errorf("hosttable: malformed host row %q", line)
		}
		port, err := strconv.Atoi(fields[1])
		if err != nil {
			return types.HostTable{}, fmt.Errorf("hosttable: bad port in %q: %w", line, err)
		}
		kind := types.Kind(fields[2])
		if kind != types.Consensus && kind != types.Client {
			return types.HostTable{}, fmt.Errorf("hosttable: unknown kind %q in %q", fields[2], line)
		}
		table.Hosts = append(table.Hosts, types.HostEntry{
			UID:  types.UID(uid),
			Host: fields[0],
			Port: port,
			Kind: kind,
		})
		uid++
	}

	if err := scanner.Err(); err != nil {
		return types.HostTable{}, fmt.Errorf("hosttable: scan: %w", err)
	}
	return table, nil
}

// nextLine returns the next non-empty, non-whitespace-only line.
func nextLine(scanner *bufio.Scanner) (string, bool) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}
