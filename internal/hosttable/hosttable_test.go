package hosttable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

const sampleTable = `proposers 1
acceptors 3
learners 1

127.0.0.1 9000 con
127.0.0.1 9001 con
127.0.0.1 9002 con
127.0.0.1 9003 con
127.0.0.1 9004 con
127.0.0.1 9005 cli
`

func TestParseSampleTable(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTable))
	require.NoError(t, err)

	assert.Equal(t, 1, table.Proposers)
	assert.Equal(t, 3, table.Acceptors)
	assert.Equal(t, 1, table.Learners)
	require.Len(t, table.Hosts, 6)

	// Line position beyond the header is the UID.
	for i, h := range table.Hosts {
		assert.Equal(t, types.UID(i), h.UID)
	}
	assert.Equal(t, types.Consensus, table.Hosts[0].Kind)
	assert.Equal(t, types.Client, table.Hosts[5].Kind)
	assert.Equal(t, 9003, table.Hosts[3].Port)
}

func TestParseHeaderOrderIsFixed(t *testing.T) {
	swapped := `acceptors 3
proposers 1
learners 1
127.0.0.1 9000 con
`
	_, err := Parse(strings.NewReader(swapped))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected "proposers"`)
}

func TestParseRejectsBadRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"missing field", "127.0.0.1 9000"},
		{"bad port", "127.0.0.1 nine con"},
		{"unknown kind", "127.0.0.1 9000 srv"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := "proposers 1\nacceptors 1\nlearners 1\n" + tc.row + "\n"
			_, err := Parse(strings.NewReader(input))
			require.Error(t, err)
		})
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	spaced := "proposers 1\n\nacceptors 1\n\nlearners 0\n\n127.0.0.1 9000 con\n\n127.0.0.1 9001 cli\n"
	table, err := Parse(strings.NewReader(spaced))
	require.NoError(t, err)
	assert.Len(t, table.Hosts, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.txt")
	require.Error(t, err)
}
