package macro_api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

//go:embed web/*.html web/client.js
var webFS embed.FS

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{"join": strings.Join}).ParseFS(webFS, "web/*.html"),
)

type seatOption struct {
	Value string
	Label string
}

var seatOptions = []seatOption{
	{macro_serv.SeatsBoth, "standard + special"},
	{macro_serv.SeatsStandard, "standard"},
	{macro_serv.SeatsSpecial, "special"},
}

var departureSlots = []string{"00", "02", "04", "06", "08", "10", "12", "14", "16", "18", "20", "22"}

type pageData struct {
	Message string
	Status  macro_serv.Status
	Form    macro_cfg.FormDefaults
	Missing []string
	Times   []string
	Seats   []seatOption
}

type envData struct {
	Masked map[string]string
}

func render(w http.ResponseWriter, code int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// formFromParams keeps what the operator typed when the page is re-rendered.
func formFromParams(p macro_serv.Params) macro_cfg.FormDefaults {
	return macro_cfg.FormDefaults{
		Arrival:   p.Arrival,
		Departure: p.Departure,
		Date:      p.Date,
		Time:      p.Time,
		Seats:     p.Seats,
		FromRow:   p.FromRow,
		ToRow:     p.ToRow,
	}
}

func paramsFromForm(f macro_cfg.FormDefaults) macro_serv.Params {
	return macro_serv.Params{
		Arrival:   f.Arrival,
		Departure: f.Departure,
		Date:      f.Date,
		Time:      f.Time,
		Seats:     f.Seats,
		FromRow:   f.FromRow,
		ToRow:     f.ToRow,
	}
}
