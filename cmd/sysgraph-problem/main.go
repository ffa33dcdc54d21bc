package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"maze.io/x/duration"
)

var dbPath string

func init() {
	p := func(v ...interface{}) { fmt.Fprintln(flag.CommandLine.Output(), v...) }
	flag.Usage = func() {
		p("Usage:")
		p("  sysgraph-problem -db <path> open <severity> <name...>")
		p("  sysgraph-problem -db <path> resolve <id>")
		p("  sysgraph-problem -db <path> ack <id> <actions> [message...]")
		p("  sysgraph-problem -db <path> list [duration]")
		p("")
		p("Severities:")
		p("  not-classified, information, warning, average, high, disaster")
		p("")
		p("Actions are joined with commas:")
		p("  close, ack, message, severity (the message is the new severity)")
		p("")
		p("Flags:")
		flag.PrintDefaults()
	}

	flag.StringVar(&dbPath, "db", dbPath, "problems database path")
	flag.Parse()
}

func main() {
	if dbPath == "" {
		log.Fatalln("missing -db flag, see -h")
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error

	switch cmd, args := args[0], args[1:]; cmd {
	case "open":
		err = open(args)
	case "resolve":
		err = resolve(args)
	case "ack":
		err = ack(args)
	case "list":
		err = list(args)
	default:
		err = errors.Errorf("unknown command %q, see -h", cmd)
	}

	if err != nil {
		log.Fatalln(err)
	}
}

func openDB(write bool) (*sysgraph.ProblemDB, error) {
	db, err := sysgraph.OpenProblems(dbPath, write)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	return db, nil
}

func open(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: open <severity> <name...>")
	}

	severity, err := graph.ParseSeverity(args[0])
	if err != nil {
		return err
	}

	db, err := openDB(true)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.Open(strings.Join(args[1:], " "), severity, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "failed to open problem")
	}

	fmt.Println(id)
	return nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid id %q", s)
	}
	return id, nil
}

func resolve(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: resolve <id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, err := openDB(true)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Resolve(id, time.Now().Unix())
}

var ackActions = map[string]graph.AckAction{
	"close":    graph.AckClose,
	"ack":      graph.AckAcknowledge,
	"message":  graph.AckMessage,
	"severity": graph.AckSeverity,
}

func parseActions(s string) (graph.AckAction, error) {
	var action graph.AckAction

	for _, name := range strings.Split(s, ",") {
		a, ok := ackActions[strings.TrimSpace(name)]
		if !ok {
			return 0, errors.Errorf("unknown action %q", name)
		}
		action |= a
	}

	return action, nil
}

func ack(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: ack <id> <actions> [message...]")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	action, err := parseActions(args[1])
	if err != nil {
		return err
	}

	db, err := openDB(true)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Acknowledge(id, graph.Acknowledgement{
		Clock:   time.Now().Unix(),
		Action:  action,
		Message: strings.Join(args[2:], " "),
	})
}

func list(args []string) error {
	dura := sysgraph.Week

	if len(args) > 0 {
		d, err := duration.ParseDuration(args[0])
		if err != nil {
			return err
		}
		dura = time.Duration(d)
	}

	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()

	problems, err := db.Range(now.Add(-dura).Unix(), now.Unix())
	if err != nil {
		return errors.Wrap(err, "failed to list problems")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tSTATUS\tSEVERITY\tSTARTED\tNAME")

	for _, p := range problems {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			p.EventID, graph.ProblemStatus(p), p.Severity,
			humanize.Time(time.Unix(p.Clock, 0)), p.Name)
	}

	return nil
}
