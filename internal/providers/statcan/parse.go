package statcan

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/econdata/internal/models"
)

type tableVector struct {
	points      []models.Observation
	name        string
	description string
	meta        map[string]string
}

type columns struct {
	vector, refDate, value int
	keep                   []int // copied into provider metadata
	desc                   []int // joined into the series name
}

func findColumns(header []string) (columns, error) {
	cols := columns{vector: -1, refDate: -1, value: -1}
	uom := -1
	for i, h := range header {
		switch strings.ToUpper(h) {
		case "VECTOR":
			cols.vector = i
		case "REF_DATE":
			cols.refDate = i
		case "VALUE":
			cols.value = i
		case "UOM":
			uom = i
		}
	}
	if cols.vector < 0 || cols.refDate < 0 || cols.value < 0 {
		return cols, errors.New("CSV format changed: VECTOR, REF_DATE and VALUE columns are required")
	}
	for i, h := range header {
		upper := strings.ToUpper(h)
		if upper != "REF_DATE" && upper != "VALUE" {
			cols.keep = append(cols.keep, i)
		}
		if i < uom && upper != "REF_DATE" && upper != "DGUID" {
			cols.desc = append(cols.desc, i)
		}
	}
	return cols, nil
}

// cleanHeader drops quotes and the byte-order mark StatCan puts on the first column.
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.ReplaceAll(h, `"`, "")
		out[i] = strings.Map(func(r rune) rune {
			if r > 127 {
				return -1
			}
			return r
		}, h)
	}
	return out
}

func parseRefDate(s string) (time.Time, error) {
	switch len(s) {
	case 7:
		return time.Parse("2006-01", s)
	case 10:
		return time.Parse("2006-01-02", s)
	case 4:
		return time.Parse("2006", s)
	default:
		return time.Time{}, fmt.Errorf("unknown StatCan date format %q", s)
	}
}

func parseTable(r io.Reader, table string, zeroIsMissing bool) (map[string]*tableVector, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = cleanHeader(header)
	cols, err := findColumns(header)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*tableVector)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(row) <= cols.value || len(row) <= cols.vector || len(row) <= cols.refDate {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[cols.value]), 64)
		if err != nil {
			continue
		}
		if zeroIsMissing && value == 0 {
			continue
		}
		vector := strings.TrimSpace(row[cols.vector])
		if vector == "" {
			continue
		}
		date, err := parseRefDate(strings.TrimSpace(row[cols.refDate]))
		if err != nil {
			return nil, err
		}

		tv, ok := out[vector]
		if !ok {
			tv = newTableVector(table, vector, header, row, cols)
			out[vector] = tv
		}
		tv.points = append(tv.points, models.Obs(date, value))
	}
	return out, nil
}

func newTableVector(table, vector string, header, row []string, cols columns) *tableVector {
	tv := &tableVector{meta: make(map[string]string, len(cols.keep))}
	for _, i := range cols.keep {
		if i < len(row) {
			tv.meta[header[i]] = row[i]
		}
	}
	if len(cols.desc) == 0 {
		tv.name = fmt.Sprintf("StatCan series with VECTOR=%s. Unable to create name.", vector)
		tv.description = fmt.Sprintf("StatCan series VECTOR=%s, From Table=%s. Unable to create name.", vector, table)
		return tv
	}
	parts := make([]string, 0, len(cols.desc))
	for _, i := range cols.desc {
		if i < len(row) {
			parts = append(parts, row[i])
		}
	}
	tv.name = strings.Join(parts, "; ")
	tv.description = fmt.Sprintf("%s From StatCan Table %s, Vector = %s", tv.name, table, vector)
	return tv
}
