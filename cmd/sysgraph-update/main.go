package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/internal/badgerlog"
	"github.com/pkg/errors"
)

func main() {
	var (
		dbPath   string
		gcDays   int64
		logLevel = badgerlog.WarningLevel
	)

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(),
			"Usage:")
		fmt.Fprintln(flag.CommandLine.Output(),
			"  "+filepath.Base(os.Args[0]), "-db path [flags...]")
		fmt.Fprintln(flag.CommandLine.Output(),
			"")
		fmt.Fprintln(flag.CommandLine.Output(),
			"Flags:")
		flag.PrintDefaults()
	}

	flag.Int64Var(&gcDays, "gc", gcDays, "delete snapshots older than this many days instead of updating, 0 to update")
	flag.StringVar(&dbPath, "db", dbPath, "badgerdb path")
	flag.Var(&logLevel, "log-level", "badger log level: none, error, warning, info or debug")
	flag.Parse()

	if dbPath == "" {
		log.Fatalln("missing -db flag; refer to -h.")
	}

	sysgraph.Logger = badgerlog.NewLogger(log.Default(), logLevel)

	var err error

	if gcDays > 0 {
		err = gc(dbPath, time.Duration(gcDays)*sysgraph.Day)
	} else {
		err = update(dbPath)
	}

	if err != nil {
		log.Fatalln("unexpected error:", err)
	}
}

func update(dbPath string) error {
	s, err := sysgraph.PrepareMetrics()
	if err != nil {
		return errors.Wrap(err, "failed to take snapshot")
	}

	d, err := sysgraph.Open(dbPath, true)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer d.Close()

	if err := d.Update(s); err != nil {
		return errors.Wrap(err, "failed to update")
	}

	return errors.Wrap(d.Close(), "failed to close")
}

func gc(dbPath string, age time.Duration) error {
	d, err := sysgraph.Open(dbPath, true)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer d.Close()

	if err := d.GC(age); err != nil {
		return errors.Wrap(err, "failed to GC")
	}

	return errors.Wrap(d.Close(), "failed to close")
}
