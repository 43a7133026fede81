package controller

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.dedis.ch/coffeetrace"
	"go.dedis.ch/coffeetrace/cli"
	"go.dedis.ch/coffeetrace/contracts/supplychain/events"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"golang.org/x/xerrors"
)

func (c controller) setEventCommands(builder cli.Builder) {
	cmd := builder.SetCommand("events")
	cmd.SetDescription("audit the log of the accepted mutations")

	sub := cmd.SetSubCommand("list")
	sub.SetDescription("print the events matching the filters")
	sub.SetFlags(
		cli.StringFlag{Name: "kind", Usage: "kind of event, like DoneHarvesting"},
		cli.StringFlag{Name: "actor", Usage: "address of the actor"},
		cli.StringFlag{Name: "subject", Usage: "hexadecimal batch identifier or user address"},
		cli.IntFlag{Name: "from", Usage: "first index to consider"},
		cli.IntFlag{Name: "limit", Usage: "maximum number of events, or 0 for all"},
	)
	sub.SetAction(c.withNode(c.listEvents))
}

func (c controller) setMetricsCommand(builder cli.Builder) {
	cmd := builder.SetCommand("metrics")
	cmd.SetDescription("print the metrics of the process in the Prometheus text format")
	cmd.SetAction(c.printMetrics)
}

func (c controller) listEvents(flags cli.Flags, n *node) error {
	query, err := readQuery(flags)
	if err != nil {
		return err
	}

	var list []types.Event

	err = n.view(func(snap store.Snapshot) error {
		list, err = events.NewLog(snap).Filter(query)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read events: %v", err)
	}

	for _, event := range list {
		fmt.Fprintln(c.out, formatEvent(event))
	}

	return nil
}

func (c controller) printMetrics(flags cli.Flags) error {
	registry := prometheus.NewRegistry()

	for _, collector := range coffeetrace.PromCollectors {
		err := registry.Register(collector)
		if err != nil {
			return xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	families, err := registry.Gather()
	if err != nil {
		return xerrors.Errorf("failed to gather metrics: %v", err)
	}

	for _, family := range families {
		_, err = expfmt.MetricFamilyToText(c.out, family)
		if err != nil {
			return xerrors.Errorf("failed to print metrics: %v", err)
		}
	}

	return nil
}

func readQuery(flags cli.Flags) (events.Query, error) {
	query := events.Query{}

	kind := flags.String("kind")
	if kind != "" {
		if !validKind(types.EventKind(kind)) {
			return query, xerrors.Errorf("unknown kind '%s'", kind)
		}

		query.Kind = types.EventKind(kind)
	}

	actor := flags.String("actor")
	if actor != "" {
		addr, err := access.ParseAddress(actor)
		if err != nil {
			return query, xerrors.Errorf("invalid actor: %v", err)
		}

		query.Actor = &addr
	}

	subject := flags.String("subject")
	if subject != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(subject, "0x"))
		if err != nil {
			return query, xerrors.Errorf("invalid subject: %v", err)
		}

		query.Subject = data
	}

	from := flags.Int("from")
	limit := flags.Int("limit")

	if from < 0 || limit < 0 {
		return query, xerrors.New("from and limit must be positive")
	}

	query.From = uint64(from)
	query.Limit = limit

	return query, nil
}

func validKind(kind types.EventKind) bool {
	for _, k := range types.EventKinds() {
		if k == kind {
			return true
		}
	}

	return false
}

func formatEvent(event types.Event) string {
	out := new(strings.Builder)

	fmt.Fprintf(out, "#%d %s actor=%v subject=0x%x time=%d", event.Index, event.Kind,
		event.Actor, event.Subject, event.Timestamp)

	keys := make([]string, 0, len(event.Attributes))
	for key := range event.Attributes {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(out, " %s=%s", key, event.Attributes[key])
	}

	return out.String()
}
