package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"github.com/fxamacker/cbor/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

func prepHandler(t *testing.T) http.Handler {
	t.Helper()

	dir := t.TempDir()
	cfg := frontend.Config{
		DBPath:   filepath.Join(dir, "db"),
		Location: time.UTC,
		Theme:    graph.DefaultTheme(),
	}

	db, err := sysgraph.Open(cfg.DBPath, true)
	if err != nil {
		t.Fatal("failed to open db:", err)
	}

	now := time.Now()

	for i := 0; i < 30; i++ {
		u := float64(i)

		s := sysgraph.Snapshot{
			CPUs:    []cpu.TimesStat{{User: 10 * u, Idle: 30 * u}},
			Memory:  mem.VirtualMemoryStat{Used: 1 << 30, Available: 3 << 30},
			Swap:    mem.SwapMemoryStat{Used: 1 << 20},
			Network: []net.IOCountersStat{{Name: "eth0", BytesRecv: 1000 * uint64(i), BytesSent: 500 * uint64(i)}},
			Disks:   []disk.UsageStat{{Path: "/", Total: 1 << 40, UsedPercent: 42}},
			Temps:   []host.TemperatureStat{{SensorKey: "coretemp", Temperature: 40 + u}},
		}

		err := db.Update(s.WithTime(now.Add(time.Duration(i-30) * time.Minute)))
		if err != nil {
			t.Fatal("failed to update:", err)
		}
	}

	if err := db.Close(); err != nil {
		t.Fatal("failed to close db:", err)
	}

	return New(cfg)
}

func get(h http.Handler, path, accept string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("GET", path, nil)
	if accept != "" {
		r.Header.Set("Accept", accept)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

type sceneData struct {
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	Legend   []graph.LegendEntry `json:"legend"`
	Elements []interface{}      `json:"elements"`
}

func TestHandler(t *testing.T) {
	h := prepHandler(t)

	type test struct {
		name   string
		path   string
		accept string
		code   int
		ctype  string
		body   []string
	}

	var tests = []test{
		{
			name:  "index",
			path:  "/",
			code:  200,
			ctype: "text/html",
			body:  []string{"CPU Usage", "Temperatures", "<svg", "coretemp"},
		},
		{
			name:  "index_duration",
			path:  "/?t=1h&refresh=1",
			code:  200,
			ctype: "text/html",
			body:  []string{"Showing the last", "refresh"},
		},
		{
			name:  "index_bad_duration",
			path:  "/?t=forever",
			code:  400,
			ctype: "text/html",
		},
		{
			name:  "svg",
			path:  "/graph/cpu.svg",
			code:  200,
			ctype: "image/svg+xml",
			body:  []string{"<svg", "svg-graph-clip"},
		},
		{
			name:  "svg_no_suffix",
			path:  "/graph/memory",
			code:  200,
			ctype: "image/svg+xml",
			body:  []string{"<svg"},
		},
		{
			name:  "unknown_graph",
			path:  "/graph/nope.svg",
			code:  404,
			ctype: "text/html",
		},
		{
			name:   "unknown_graph_json",
			path:   "/graph/nope",
			accept: "application/json",
			code:   404,
			ctype:  "application/json",
			body:   []string{"unknown graph"},
		},
		{
			name:   "bad_size_json",
			path:   "/graph/cpu?width=1",
			accept: "application/json",
			code:   400,
			ctype:  "application/json",
			body:   []string{"out of bounds"},
		},
		{
			name:   "custom_no_sources",
			path:   "/graph/custom",
			accept: "application/json",
			code:   400,
			ctype:  "application/json",
			body:   []string{"no sources given"},
		},
		{
			name:   "custom_unknown_source",
			path:   "/graph/custom?s=cpu.util,bogus",
			accept: "application/json",
			code:   400,
			ctype:  "application/json",
			body:   []string{"unknown source"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := get(h, test.path, test.accept)

			if w.Code != test.code {
				t.Fatalf("unexpected status code %d, expected %d\nbody: %s",
					w.Code, test.code, w.Body.String())
			}

			if ctype := w.Header().Get("Content-Type"); !strings.HasPrefix(ctype, test.ctype) {
				t.Fatalf("unexpected content type %q, expected %q", ctype, test.ctype)
			}

			body := w.Body.String()
			for _, want := range test.body {
				if !strings.Contains(body, want) {
					t.Errorf("body is missing %q", want)
				}
			}
		})
	}
}

func TestHandlerData(t *testing.T) {
	h := prepHandler(t)

	type test struct {
		name   string
		accept string
		decode func([]byte, interface{}) error
	}

	var tests = []test{
		{"json", "application/json", json.Unmarshal},
		{"cbor", "application/cbor", cbor.Unmarshal},
		{"json_weighted", "text/html;q=0.9, application/json;q=1.0", json.Unmarshal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := get(h, "/graph/custom?s=cpu.util,right:mem.used&width=400&height=150", test.accept)
			if w.Code != 200 {
				t.Fatalf("unexpected status code %d: %s", w.Code, w.Body.String())
			}

			var scene sceneData
			if err := test.decode(w.Body.Bytes(), &scene); err != nil {
				t.Fatal("failed to decode:", err)
			}

			if scene.Width != 400 || scene.Height != 150 {
				t.Fatalf("unexpected size %dx%d", scene.Width, scene.Height)
			}

			if len(scene.Elements) == 0 {
				t.Fatal("scene has no elements")
			}

			if len(scene.Legend) != 2 {
				t.Fatalf("expected 2 legend entries, got %d", len(scene.Legend))
			}
		})
	}
}

func TestHandlerAllScenes(t *testing.T) {
	h := prepHandler(t)

	w := get(h, "/?t=3h", "application/json")
	if w.Code != 200 {
		t.Fatalf("unexpected status code %d: %s", w.Code, w.Body.String())
	}

	var scenes map[string]sceneData
	if err := json.Unmarshal(w.Body.Bytes(), &scenes); err != nil {
		t.Fatal("failed to decode:", err)
	}

	for _, name := range []string{"cpu", "memory", "load", "network", "disks", "temperatures"} {
		scene, ok := scenes[name]
		if !ok {
			t.Errorf("missing scene %q", name)
			continue
		}
		if scene.Width != frontend.DefaultWidth {
			t.Errorf("scene %q has width %d, expected %d", name, scene.Width, frontend.DefaultWidth)
		}
	}
}

func TestParseDuration(t *testing.T) {
	type test struct {
		t    string
		dura time.Duration
		err  bool
	}

	var tests = []test{
		{"", 3 * time.Hour, false},
		{"1h", time.Hour, false},
		{"2d", 48 * time.Hour, false},
		{"0s", 0, true},
		{"-1h", 0, true},
		{"400d", 0, true},
		{"what", 0, true},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%q", test.t), func(t *testing.T) {
			r := httptest.NewRequest("GET", "/?t="+test.t, nil)

			d, err := parseDuration(r)
			if test.err {
				if err == nil {
					t.Fatalf("expected error, got %v", d)
				}
				return
			}

			if err != nil {
				t.Fatal("unexpected error:", err)
			}

			if d != test.dura {
				t.Fatalf("unexpected duration %v, expected %v", d, test.dura)
			}
		})
	}
}
