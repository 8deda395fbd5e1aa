package http

import (
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/geojsonfile"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
	"github.com/couchcryptid/tent-hex-enrichment/internal/lookup"
)

const serviceName = "Homelessness Hex Enrichment API"

type errorBody struct {
	Detail string `json:"detail"`
}

type coreBody struct {
	H3ID       string  `json:"h3_id"`
	CenterLat  float64 `json:"center_lat"`
	CenterLon  float64 `json:"center_lon"`
	TentStatus int     `json:"tent_status"`
}

type hexBody struct {
	Core       coreBody       `json:"core"`
	Facilities map[string]int `json:"facilities"`
}

type locationBody struct {
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Resolution   int      `json:"resolution"`
	ComputedH3ID string   `json:"computed_h3_id"`
	InIndex      bool     `json:"in_index"`
	Row          *hexBody `json:"row,omitempty"`
}

func toHexBody(rec lookup.Record) hexBody {
	return hexBody{
		Core: coreBody{
			H3ID:       string(rec.ID),
			CenterLat:  rec.Center.Lat,
			CenterLon:  rec.Center.Lon,
			TentStatus: rec.TentStatus,
		},
		Facilities: rec.Facilities,
	}
}

// table returns the loaded table, answering 503 when none is loaded yet.
func (s *Server) table(w http.ResponseWriter) *lookup.Table {
	t := s.store.Table()
	if t == nil {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "Enriched table not loaded"})
	}
	return t
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"status":  "ok",
		"health":  "/health",
		"metrics": "/metrics",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t := s.store.Table()
	if t == nil {
		sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"status": "not_ready", "rows": 0})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": t.Len()})
}

func (s *Server) handleHexByID(w http.ResponseWriter, r *http.Request) {
	const route = "hex"
	t := s.table(w)
	if t == nil {
		return
	}
	rec, ok := t.Get(chi.URLParam(r, "h3_id"))
	if !ok {
		s.observe(route, "not_found")
		sharedobs.WriteJSON(w, http.StatusNotFound, errorBody{Detail: "Hex not found"})
		return
	}
	s.observe(route, "found")
	sharedobs.WriteJSON(w, http.StatusOK, toHexBody(rec))
}

func (s *Server) handleByLocation(w http.ResponseWriter, r *http.Request) {
	const route = "by_location"
	t := s.table(w)
	if t == nil {
		return
	}

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		s.observe(route, "bad_request")
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Detail: "lat and lon must be numbers"})
		return
	}
	res := s.opts.DefaultResolution
	if v := q.Get("resolution"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.observe(route, "bad_request")
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Detail: "resolution must be an integer"})
			return
		}
		res = n
	}

	p := domain.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		s.observe(route, "bad_request")
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Detail: "lat or lon out of range"})
		return
	}
	id, err := s.indexer.PointToCell(p, res)
	if err != nil {
		s.observe(route, "bad_request")
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}

	body := locationBody{Lat: lat, Lon: lon, Resolution: res, ComputedH3ID: string(id)}
	if rec, ok := t.Get(string(id)); ok {
		row := toHexBody(rec)
		body.InIndex = true
		body.Row = &row
		s.observe(route, "found")
	} else {
		s.observe(route, "not_found")
	}
	sharedobs.WriteJSON(w, http.StatusOK, body)
}

func (s *Server) handleDebugLookup(w http.ResponseWriter, r *http.Request) {
	t := s.table(w)
	if t == nil {
		return
	}
	id := r.URL.Query().Get("h3_id")
	_, ok := t.Get(id)

	sample := t.Columns()
	if len(sample) > 10 {
		sample = sample[:10]
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"h3_id":          id,
		"in_index":       ok,
		"source":         t.Source(),
		"columns_sample": sample,
		"rows":           t.Len(),
	})
}

func (s *Server) handleHexGeoJSON(w http.ResponseWriter, r *http.Request) {
	const route = "hex_geojson"
	t := s.table(w)
	if t == nil {
		return
	}
	rec, ok := t.Get(chi.URLParam(r, "h3_id"))
	if !ok {
		s.observe(route, "not_found")
		sharedobs.WriteJSON(w, http.StatusNotFound, errorBody{Detail: "Hex not found"})
		return
	}
	f, err := geojsonfile.CellFeature(s.indexer, rec.ID, recordProperties(rec))
	if err != nil {
		s.logger.Error("build hex feature", "h3_id", rec.ID, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorBody{Detail: "Could not build hex geometry"})
		return
	}
	s.observe(route, "found")
	writeGeoJSON(w, f)
}

func (s *Server) handleAllGeoJSON(w http.ResponseWriter, _ *http.Request) {
	t := s.table(w)
	if t == nil {
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, rec := range t.Records() {
		f, err := geojsonfile.CellFeature(s.indexer, rec.ID, recordProperties(rec))
		if err != nil {
			s.logger.Warn("skipping hex without geometry", "h3_id", rec.ID, "error", err)
			continue
		}
		fc.Append(f)
	}
	s.observe("hexes_geojson", "found")
	writeGeoJSON(w, fc)
}

func recordProperties(rec lookup.Record) map[string]any {
	props := map[string]any{
		domain.ColumnID:         string(rec.ID),
		domain.ColumnCenterLat:  rec.Center.Lat,
		domain.ColumnCenterLon:  rec.Center.Lon,
		domain.ColumnTentStatus: rec.TentStatus,
	}
	for k, v := range rec.Facilities {
		props[k] = v
	}
	return props
}

func writeGeoJSON(w http.ResponseWriter, v interface{ MarshalJSON() ([]byte, error) }) {
	data, err := v.MarshalJSON()
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorBody{Detail: "Could not encode GeoJSON"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) observe(route, outcome string) {
	s.metrics.LookupRequests.WithLabelValues(route, outcome).Inc()
}
