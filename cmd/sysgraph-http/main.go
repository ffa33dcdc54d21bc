package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cgi"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/handler"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"git.unix.lgbt/diamondburned/sysgraph/internal/badgerlog"
)

var (
	dbPath       string
	problemsPath string
	workTime     string
	timezone     string
	serveCGI     bool
	logLevel     = badgerlog.WarningLevel
)

func init() {
	p := func(v ...interface{}) { fmt.Fprintln(flag.CommandLine.Output(), v...) }
	flag.Usage = func() {
		p("Usage:")
		p("  sysgraph-http -db <badgerdb path> [flags...] <http address>")
		p("  sysgraph-http -db <badgerdb path> -cgi [flags...]")
		p("")
		p("Flags:")
		flag.PrintDefaults()
	}

	flag.StringVar(&dbPath, "db", dbPath, "badgerdb path")
	flag.StringVar(&problemsPath, "problems", problemsPath, "optional problems database path")
	flag.StringVar(&workTime, "worktime", workTime, "working time periods, e.g. 1-5,09:00-18:00")
	flag.StringVar(&timezone, "tz", timezone, "timezone for the time axis, default local")
	flag.BoolVar(&serveCGI, "cgi", serveCGI, "serve a single CGI request instead of listening")
	flag.Var(&logLevel, "log-level", "badger log level: none, error, warning, info or debug")
	flag.Parse()
}

func main() {
	if dbPath == "" {
		log.Fatalln("missing -db flag, see -h")
	}

	sysgraph.Logger = badgerlog.NewLogger(log.Default(), logLevel)

	cfg := frontend.Config{
		DBPath:       dbPath,
		ProblemsPath: problemsPath,
		Location:     time.Local,
		Theme:        graph.DefaultTheme(),
	}

	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			log.Fatalln("invalid -tz:", err)
		}
		cfg.Location = loc
	}

	if workTime != "" {
		periods, err := graph.ParseWorkPeriods(workTime)
		if err != nil {
			log.Fatalln("invalid -worktime:", err)
		}
		cfg.WorkPeriods = periods
	}

	h := handler.New(cfg)

	if serveCGI {
		if err := cgi.Serve(h); err != nil {
			log.Fatalln("failed to serve:", err)
		}
		return
	}

	listen := flag.Arg(0)
	if listen == "" {
		log.Fatalln("missing listen addr, see -h")
	}

	if err := http.ListenAndServe(listen, h); err != nil {
		log.Fatalln("failed to serve:", err)
	}
}
