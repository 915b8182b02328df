package translink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nextbus/internal/model"
)

// fields is a JSON object with lower-cased keys. Getters take a list of
// accepted names so both the RTTI names (StopNo, Latitude, ...) and short
// aliases (code, lat, ...) map to the same model field. The first bad value
// is kept in err.
type fields struct {
	m   map[string]json.RawMessage
	err error
}

func newFields(raw map[string]json.RawMessage) *fields {
	m := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		m[strings.ToLower(k)] = v
	}
	return &fields{m: m}
}

func (f *fields) lookup(keys []string) (string, json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f.m[k]; ok && !bytes.Equal(v, []byte("null")) {
			return k, v, true
		}
	}
	return "", nil, false
}

func (f *fields) fail(key string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: %w", key, err)
	}
}

// str accepts JSON strings and numbers.
func (f *fields) str(keys ...string) string {
	key, raw, ok := f.lookup(keys)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		f.fail(key, err)
		return ""
	}
	return n.String()
}

// float accepts JSON numbers and numeric strings.
func (f *fields) float(keys ...string) float64 {
	key, raw, ok := f.lookup(keys)
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.fail(key, err)
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		f.fail(key, err)
	}
	return v
}

func (f *fields) integer(keys ...string) int {
	return int(f.float(keys...))
}

func (f *fields) flag(keys ...string) bool {
	key, raw, ok := f.lookup(keys)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		f.fail(key, err)
	}
	return b
}

func (f *fields) objects(keys ...string) ([]*fields, bool) {
	key, raw, ok := f.lookup(keys)
	if !ok {
		return nil, false
	}
	list, err := decodeArray(raw)
	if err != nil {
		f.fail(key, err)
		return nil, false
	}
	return list, true
}

func decodeObject(data []byte) (*fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode object: null body")
	}
	return newFields(raw), nil
}

func decodeArray(data []byte) ([]*fields, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode array: null body")
	}
	out := make([]*fields, 0, len(raw))
	for _, r := range raw {
		out = append(out, newFields(r))
	}
	return out, nil
}

func parseStop(body []byte) (*model.Stop, error) {
	f, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	stop := &model.Stop{
		Code: f.str("stopno", "code"),
		Name: f.str("name"),
		Location: model.Location{
			Lat: f.float("latitude", "lat"),
			Lon: f.float("longitude", "lon", "lng"),
		},
		OnStreet: f.str("onstreet"),
		AtStreet: f.str("atstreet"),
		City:     f.str("city"),
		Routes:   splitRoutes(f.str("routes")),
	}
	if f.err != nil {
		return nil, f.err
	}
	if stop.Code == "" {
		return nil, fmt.Errorf("stop object has no stop number")
	}
	return stop, nil
}

// parseEstimates accepts a flat list of estimates or RTTI's grouped form, one
// element per route with its upcoming trips under "Schedules". Both keep the
// order of the body.
func parseEstimates(body []byte) ([]model.ArrivalEstimate, error) {
	list, err := decodeArray(body)
	if err != nil {
		return nil, err
	}

	var out []model.ArrivalEstimate
	for i, f := range list {
		route := f.str("routeno", "route")
		if schedules, ok := f.objects("schedules"); ok {
			for _, s := range schedules {
				out = append(out, estimateFrom(s, route))
				if s.err != nil {
					return nil, fmt.Errorf("estimate %d: %w", i, s.err)
				}
			}
		} else {
			out = append(out, estimateFrom(f, route))
		}
		if f.err != nil {
			return nil, fmt.Errorf("estimate %d: %w", i, f.err)
		}
	}
	return out, nil
}

func estimateFrom(f *fields, route string) model.ArrivalEstimate {
	if r := f.str("routeno", "route"); r != "" {
		route = r
	}
	return model.ArrivalEstimate{
		Route:       route,
		Destination: f.str("destination"),
		Countdown:   f.integer("expectedcountdown", "countdown", "minutes"),
		Status:      model.ParseAdherence(f.str("schedulestatus", "status")),
		Cancelled:   f.flag("cancelledtrip", "cancelled"),
	}
}

func parseVehicles(body []byte) ([]model.VehicleLocation, error) {
	list, err := decodeArray(body)
	if err != nil {
		return nil, err
	}

	out := make([]model.VehicleLocation, 0, len(list))
	for i, f := range list {
		v := model.VehicleLocation{
			Vehicle:     f.str("vehicleno", "vehicle"),
			Route:       f.str("routeno", "route"),
			Destination: f.str("destination"),
			Heading:     f.str("direction", "heading"),
			Location: model.Location{
				Lat: f.float("latitude", "lat"),
				Lon: f.float("longitude", "lon", "lng"),
			},
		}
		if f.err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", i, f.err)
		}
		out = append(out, v)
	}
	return out, nil
}

// upstreamError recognises RTTI's {"Code": "3005", "Message": "..."} body.
func upstreamError(body []byte) (string, bool) {
	f, err := decodeObject(body)
	if err != nil {
		return "", false
	}
	if _, _, ok := f.lookup([]string{"name"}); ok {
		return "", false
	}
	code, msg := f.str("code"), f.str("message")
	if code == "" || msg == "" {
		return "", false
	}
	return code + " " + msg, true
}

func splitRoutes(s string) []string {
	var routes []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			routes = append(routes, r)
		}
	}
	return routes
}
