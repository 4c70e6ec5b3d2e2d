// Package statcan reads Statistics Canada full-table CSV downloads. One fetch
// parses a whole table, so every vector in it is returned as a companion series.
package statcan

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the provider code used when none is configured.
const DefaultCode = "CCSV"

// DefaultZipTail is appended to the table number to name the download.
const DefaultZipTail = "-eng.zip"

// Tables that publish 0 where a value is missing.
var zeroMeansMissing = map[string]bool{
	"10100139": true,
}

// Provider serves "<table>|<vector>" query tickers from files in a directory.
type Provider struct {
	code    string
	dir     string
	zipTail string
	logger  *common.Logger
}

// NewProvider returns a StatCan provider reading tables from dir.
func NewProvider(code, dir, zipTail string, logger *common.Logger) *Provider {
	if code == "" {
		code = DefaultCode
	}
	if zipTail == "" {
		zipTail = DefaultZipTail
	}
	return &Provider{code: code, dir: dir, zipTail: zipTail, logger: logger}
}

func (p *Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		Code:    p.code,
		Name:    "StatCan CSV",
		WebPage: "https://www150.statcan.gc.ca/n1/en/type/data?MM=1",
	}
}

// TableURL returns the StatCan page for a table.
func TableURL(table string) string {
	return "https://www150.statcan.gc.ca/t1/tbl1/en/tv.action?pid=" + table
}

// SeriesURL links to the table holding the series.
func (p *Provider) SeriesURL(rec *models.SeriesRecord) (string, error) {
	table, _, err := splitQuery(rec.QueryTicker.String())
	if err != nil {
		return "", err
	}
	return TableURL(table), nil
}

func splitQuery(query string) (table, vector string, err error) {
	table, vector, ok := strings.Cut(query, tickers.Pipe)
	if !ok || table == "" || vector == "" || strings.Contains(vector, tickers.Pipe) {
		return "", "", &tickers.InvalidTickerError{
			Input:  query,
			Kind:   tickers.KindQuery,
			Reason: "StatCan query ticker format is <table>|<vector>",
		}
	}
	return table, vector, nil
}

func (p *Provider) Fetch(ctx context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	table, _, err := splitQuery(rec.QueryTicker.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}

	rc, err := p.openTable(table)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	p.logger.Info().Str("table", table).Msg("Parsing StatCan table")
	parsed, err := parseTable(rc, table, zeroMeansMissing[table])
	if err != nil {
		return nil, fmt.Errorf("StatCan table %s: %w", table, err)
	}

	entries := make(map[string]models.TableEntry, len(parsed))
	for vector, tv := range parsed {
		query, err := tickers.NewQueryTicker(table + tickers.Pipe + vector)
		if err != nil {
			return nil, err
		}
		provider, err := tickers.NewProviderCode(p.code)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
		full, err := tickers.Compose(provider, query)
		if err != nil {
			return nil, err
		}
		series, err := models.NewSeries(full.String(), tv.points)
		if err != nil {
			return nil, err
		}
		meta := models.NewRecordFromFull(full)
		meta.Name = tv.name
		meta.Description = tv.description
		meta.WebPage = TableURL(table)
		meta.ProviderMetadata = tv.meta
		entries[full.String()] = models.TableEntry{Series: series, Record: meta}
	}
	p.logger.Info().Str("table", table).Int("vectors", len(entries)).Msg("StatCan table parsed")

	entry, ok := entries[rec.FullTicker.String()]
	if !ok {
		return &models.FetchResult{Table: entries}, models.NotFound(rec.FullTicker.String(), "StatCan table "+table)
	}
	return &models.FetchResult{Series: entry.Series, Record: entry.Record, Table: entries}, nil
}

// openTable opens <dir>/<table>.csv, falling back to the entry inside the
// downloaded zip.
func (p *Provider) openTable(table string) (io.ReadCloser, error) {
	csvName := table + ".csv"
	f, err := os.Open(filepath.Join(p.dir, csvName))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open %s: %w", csvName, err)
	}

	zipPath := filepath.Join(p.dir, table+p.zipTail)
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: table %s needs to be downloaded as %s: %v", models.ErrConfiguration, table, zipPath, err)
	}
	for _, zf := range zr.File {
		if zf.Name != csvName {
			if zf.Name != table+"_MetaData.csv" {
				p.logger.Warn().Str("file", zf.Name).Str("zip", zipPath).Msg("Unexpected file in StatCan download")
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("failed to open %s in %s: %w", csvName, zipPath, err)
		}
		return &zipEntry{ReadCloser: rc, archive: zr}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("%w: %s does not contain %s", models.ErrConfiguration, zipPath, csvName)
}

type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}
