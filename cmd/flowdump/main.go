package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/arborcore/flowgraph/flow"
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const topologicalKey = "topological"

func main() {
	cmd := &cli.Command{
		Name:  "flowdump",
		Usage: "build a small demo dataflow graph, commit it, and print its settled state",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  topologicalKey,
				Usage: "commit with the rank-ordered topological traversal instead of depth-first",
				Value: true,
			},
		},
		Action: dump,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// entry is one row of the node table, named and labeled so that large
// graphs stay readable without printing full pointer identities.
type entry struct {
	name      string
	kind      string
	node      flow.AnyNode
	current   any
	last      any
	observers int
	pending   string
}

func dump(ctx context.Context, cmd *cli.Command) error {
	x := flow.NewSensor(func() int { return 7 })
	y := flow.NewState(12)
	z := flow.NewReader2[int, int, int](func(a, b int) int { return a + b }, x, y)
	merged := flow.NewMerge[int](x, z)
	u := flow.NewReader1[[]int, int](func(t []int) int { return t[0] }, merged)
	c := flow.NewCursor1[int, int](
		func(v int) int { return v * 2 },
		func(_ int, v int) int { return v / 2 },
		y,
	)

	u.Observers().Connect(func(int) {})
	c.Observers().Connect(func(int) {})
	c.Observers().Connect(func(int) {})

	y.SendUp(20)

	var commit func(roots ...flow.AnyNode) error = flow.Commit
	if cmd.Bool(topologicalKey) {
		commit = flow.CommitTopological
	}
	if err := commit(x, y); err != nil {
		return fmt.Errorf("flowdump: commit failed: %w", err)
	}

	entries := []entry{
		{name: "x:sensor", kind: "sensor", node: x, current: x.Current(), last: x.Last(), observers: x.Observers().Len(), pending: formatPending(x.Pending())},
		{name: "y:state", kind: "state", node: y, current: y.Current(), last: y.Last(), observers: y.Observers().Len(), pending: formatPending(y.Pending())},
		{name: "z:sum", kind: "inner", node: z, current: z.Current(), last: z.Last(), observers: z.Observers().Len(), pending: formatPending(z.Pending())},
		{name: "merged", kind: "inner", node: merged, current: merged.Current(), last: merged.Last(), observers: merged.Observers().Len(), pending: formatPending(merged.Pending())},
		{name: "u:first", kind: "inner", node: u, current: u.Current(), last: u.Last(), observers: u.Observers().Len(), pending: formatPending(u.Pending())},
		{name: "c:double", kind: "cursor", node: c, current: c.Current(), last: c.Last(), observers: c.Observers().Len(), pending: formatPending(c.Pending())},
	}

	printNodeTable(entries)
	printObserverTable(entries)
	return nil
}

func nodeLabel(name string) string {
	return fmt.Sprintf("%08x", uint32(xxhash.Sum64String(name)))
}

// formatPending renders a node's Pending flags for display. Once a commit
// has carried every pending write through, both are false, so "settled" is
// the expected reading once flowdump's demo graph has been committed.
func formatPending(needsSendDown, needsNotify bool) string {
	if !needsSendDown && !needsNotify {
		return "settled"
	}
	return fmt.Sprintf("sendDown=%t notify=%t", needsSendDown, needsNotify)
}

func printNodeTable(entries []entry) {
	tbl := table.NewWriter()
	tbl.SetTitle("flowgraph nodes")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"label", "name", "kind", "rank", "current", "last", "pending"})
	for _, e := range entries {
		tbl.AppendRows([]table.Row{
			{nodeLabel(e.name), e.name, e.kind, e.node.Rank(), e.current, e.last, e.pending},
		})
	}
	tbl.Render()
}

func printObserverTable(entries []entry) {
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"label", "name", "observers"})
	for _, e := range entries {
		tbl.Append([]string{nodeLabel(e.name), e.name, humanize.Comma(int64(e.observers))})
	}
	tbl.Render()
}
