// Package datasource loads raw tick rows from a local CSV file or a remote
// CSV endpoint, producing the []cleansing.RawRow the C2 cleansing pipeline
// consumes. Grounded on the column contract in
// original_source/aegisquant-core/src/data_loader.rs (required columns
// timestamp/price/volume, optional split_factor/dividend) — Polars itself
// has no Go equivalent anywhere in the pack, so this package reads CSV with
// the standard library's encoding/csv for the local case, and fetches the
// remote case over go-resty/resty, the HTTP client used for every other
// external-API concern in the pack.
package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"aegisgo/internal/cleansing"
)

// Source produces raw tick rows for the cleansing pipeline.
type Source interface {
	Load(ctx context.Context) ([]cleansing.RawRow, error)
}

// FileSource reads a local CSV file with a header row containing at least
// timestamp, price, volume, and optionally split_factor, dividend.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource { return &FileSource{Path: path} }

func (s *FileSource) Load(ctx context.Context) ([]cleansing.RawRow, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return parseCSV(f)
}

// RemoteSource fetches a CSV payload over HTTP using resty, for tick
// sources that live behind a data API rather than on local disk.
type RemoteSource struct {
	URL    string
	Client *resty.Client
}

func NewRemoteSource(url string, timeout time.Duration) *RemoteSource {
	client := resty.New().SetTimeout(timeout).SetRetryCount(2)
	return &RemoteSource{URL: url, Client: client}
}

func (s *RemoteSource) Load(ctx context.Context) ([]cleansing.RawRow, error) {
	resp, err := s.Client.R().SetContext(ctx).Get(s.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: status %d", s.URL, resp.StatusCode())
	}
	return parseCSVBytes(resp.Body())
}

func parseCSVBytes(data []byte) ([]cleansing.RawRow, error) {
	return parseCSV(newByteReader(data))
}

type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func parseCSV(r io.Reader) ([]cleansing.RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"timestamp", "price", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var rows []cleansing.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		ts, err := strconv.ParseInt(record[col["timestamp"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		price, err := strconv.ParseFloat(record[col["price"]], 64)
		if err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		volume, err := strconv.ParseFloat(record[col["volume"]], 64)
		if err != nil {
			return nil, fmt.Errorf("parse volume: %w", err)
		}

		row := cleansing.RawRow{Timestamp: ts, Price: price, Volume: volume, SplitFactor: 1.0}
		if idx, ok := col["split_factor"]; ok && idx < len(record) && record[idx] != "" {
			if v, err := strconv.ParseFloat(record[idx], 64); err == nil {
				row.SplitFactor = v
			}
		}
		if idx, ok := col["dividend"]; ok && idx < len(record) && record[idx] != "" {
			if v, err := strconv.ParseFloat(record[idx], 64); err == nil {
				row.Dividend = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
