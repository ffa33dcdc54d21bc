package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/sysgraph"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend/pages/errpage"
	"git.unix.lgbt/diamondburned/sysgraph/cmd/sysgraph-http/frontend/pages/index"
	"git.unix.lgbt/diamondburned/sysgraph/graph"
	"git.unix.lgbt/diamondburned/sysgraph/graph/svgout"
	"github.com/diamondburned/tmplutil"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"
	"maze.io/x/duration"
)

var minifier = minify.New()

func init() {
	minifier.Add("text/html", html.DefaultMinifier)
	minifier.AddFunc("text/css", css.Minify)
	minifier.AddFunc("image/svg+xml", svg.Minify)
}

// New creates a new handler serving graphs from the configured databases.
func New(cfg frontend.Config) http.Handler {
	r := chi.NewRouter()
	r.Mount("/static", http.StripPrefix("/static", frontend.MountStatic()))
	r.Group(func(r chi.Router) {
		r.Use(tmplutil.AlwaysFlush)
		r.Use(middleware.NoCache)
		r.Use(middleware.Compress(5))

		r.Get("/", root(cfg))
		r.Get("/graph/{name}", graphHandler(cfg))
	})

	return r
}

type jsonError struct {
	Error string
}

// Accepted response types besides the default.
const (
	typeJSON = "application/json"
	typeCBOR = "application/cbor"
)

// accepts returns the first response type in the Accept header that is not
// the default, or an empty string.
func accepts(r *http.Request) string {
	for _, accept := range strings.Split(r.Header.Get("Accept"), ",") {
		accept, _, _ = strings.Cut(accept, ";")

		switch accept = strings.TrimSpace(accept); accept {
		case typeJSON, typeCBOR:
			return accept
		}
	}

	return ""
}

func root(cfg frontend.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRequest(r)

		switch accepts(r) {
		case typeJSON, typeCBOR:
			if err != nil {
				writeError(w, r, http.StatusBadRequest, err)
				return
			}

			scenes, err := readScenes(cfg, req)
			if err != nil {
				writeError(w, r, statusOf(err), err)
				return
			}

			writeData(w, r, scenes)

		default:
			if err != nil {
				errpage.Respond(w, http.StatusBadRequest, err)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=UTF-8")

			w := minifier.Writer("text/html", w)
			defer w.Close()

			index.Render(w, cfg, req.query, req.dura, req.width, req.height, req.refresh)
		}
	}
}

func graphHandler(cfg frontend.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(chi.URLParam(r, "name"), ".svg")

		req, err := parseRequest(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}

		scene, err := readScene(cfg, req, name, r.FormValue("s"))
		if err != nil {
			writeError(w, r, statusOf(err), err)
			return
		}

		if accepts(r) != "" {
			writeData(w, r, scene)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")

		mw := minifier.Writer("image/svg+xml", w)
		defer mw.Close()

		if err := svgout.Write(mw, scene); err != nil {
			// The headers are already out, so there's nothing else to do.
			logError(r, err)
		}
	}
}

func readScene(cfg frontend.Config, req request, name, sources string) (*graph.Scene, error) {
	reader, err := frontend.Open(cfg, time.Now(), req.dura)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	preset, err := reader.Preset(name, sources)
	if err != nil {
		return nil, err
	}

	return reader.Scene(preset, req.width, req.height)
}

func readScenes(cfg frontend.Config, req request) (map[string]*graph.Scene, error) {
	reader, err := frontend.Open(cfg, time.Now(), req.dura)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	presets := reader.Presets()
	scenes := make(map[string]*graph.Scene, len(presets))

	for _, p := range presets {
		scene, err := reader.Scene(p, req.width, req.height)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot draw %s", p.Name)
		}
		scenes[p.Name] = scene
	}

	return scenes, nil
}

func writeData(w http.ResponseWriter, r *http.Request, v interface{}) {
	var err error

	switch accepts(r) {
	case typeCBOR:
		w.Header().Set("Content-Type", typeCBOR)
		err = cbor.NewEncoder(w).Encode(v)
	default:
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		err = json.NewEncoder(w).Encode(v)
	}

	if err != nil {
		logError(r, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	switch accepts(r) {
	case typeJSON, typeCBOR:
		w.Header().Set("Content-Type", accepts(r))
		w.WriteHeader(code)

		if accepts(r) == typeCBOR {
			cbor.NewEncoder(w).Encode(jsonError{Error: err.Error()})
		} else {
			json.NewEncoder(w).Encode(jsonError{Error: err.Error()})
		}

	default:
		errpage.Respond(w, code, err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, frontend.ErrUnknownGraph):
		return http.StatusNotFound
	case errors.Is(err, sysgraph.ErrUnknownSource), errors.Is(err, frontend.ErrNoSources):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func logError(r *http.Request, err error) {
	log.Printf("%s: %v", r.URL.Path, err)
}

type request struct {
	query   string
	dura    time.Duration
	width   int
	height  int
	refresh bool
}

func parseRequest(r *http.Request) (request, error) {
	req := request{
		query:   r.FormValue("t"),
		width:   frontend.DefaultWidth,
		height:  frontend.DefaultHeight,
		refresh: r.FormValue("refresh") != "",
	}

	var err error

	req.dura, err = parseDuration(r)
	if err != nil {
		return req, err
	}

	if req.width, err = parseSize(r, "width", req.width); err != nil {
		return req, err
	}
	if req.height, err = parseSize(r, "height", req.height); err != nil {
		return req, err
	}

	return req, nil
}

// Bounds of the width and height parameters.
const (
	minSize = 50
	maxSize = 4096
)

func parseSize(r *http.Request, key string, def int) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}

	if i < minSize || i > maxSize {
		return 0, errors.Errorf("%s %d is out of bounds [%d, %d]", key, i, minSize, maxSize)
	}

	return i, nil
}

const maxTime = 365 * 24 * time.Hour // max 1yr

func parseDuration(r *http.Request) (time.Duration, error) {
	// Default to rendering last 3 hours' data.
	dura := 3 * time.Hour

	if t := r.FormValue("t"); t != "" {
		d, err := duration.ParseDuration(t)
		if err != nil {
			return 0, err
		}

		dura = time.Duration(d)

		if dura <= 0 || dura > maxTime {
			return 0, errors.Errorf("duration %v is out of bounds (0, %v]", d, maxTime)
		}
	}

	return dura, nil
}
