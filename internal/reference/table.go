package reference

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jusunglee/mta-realtime/internal/models"
)

// table is one GTFS csv file with a case-insensitive header index
type table struct {
	name   string
	header map[string]int
	rows   [][]string
}

func (j *Joiner) readTable(name string) (*table, error) {
	f, err := os.Open(filepath.Join(j.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: missing header", name)
	}

	t := &table{name: name, header: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, col := range records[0] {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		t.header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return t, nil
}

// get returns the trimmed cell for col, or "" when the column or cell is missing
func (t *table) get(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) coord(row []string, latCol, lngCol string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(t.get(row, latCol), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: bad %s: %w", t.name, latCol, err)
	}
	lng, err := strconv.ParseFloat(t.get(row, lngCol), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: bad %s: %w", t.name, lngCol, err)
	}
	return lat, lng, nil
}

func (t *table) station(row []string) (models.Station, error) {
	lat, lng, err := t.coord(row, "stop_lat", "stop_lon")
	if err != nil {
		return models.Station{}, err
	}
	return models.Station{
		ID:   t.get(row, "stop_id"),
		Name: t.get(row, "stop_name"),
		Lat:  lat,
		Lng:  lng,
	}, nil
}

// distinct returns the non-empty values of col in first-seen order
func (t *table) distinct(col string, keep func([]string) bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.rows {
		if !keep(row) {
			continue
		}
		v := t.get(row, col)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (t *table) set(col string, keep func([]string) bool) map[string]bool {
	out := make(map[string]bool)
	for _, v := range t.distinct(col, keep) {
		out[v] = true
	}
	return out
}
