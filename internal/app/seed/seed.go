// Package seed loads the instrument list and calendar overrides from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	caldomain "stock_realtime/internal/feature/calendar/domain"
	calentity "stock_realtime/internal/feature/calendar/domain/entity"
	symentity "stock_realtime/internal/feature/symbollist/domain/entity"
)

// File is the seed document.
//
//	symbols:
//	  - code: AAPL
//	    name: Apple Inc.
//	    market: NASDAQ
//	overrides:
//	  - date: "2024-11-29"
//	    session: "23:30~03:00"
//	    event: Thanksgiving (early close)
//	  - date: "2024-12-25"
//	    closed: true
//	    event: Christmas
type File struct {
	Symbols   []SymbolEntry   `yaml:"symbols"`
	Overrides []OverrideEntry `yaml:"overrides"`
}

// SymbolEntry は銘柄1件分の定義です。active を省略した場合は有効とみなします。
type SymbolEntry struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Market string `yaml:"market"`
	Active *bool  `yaml:"active"`
}

// OverrideEntry は祝日・短縮取引日1件分の定義です。
type OverrideEntry struct {
	Date    string `yaml:"date"`
	Session string `yaml:"session"`
	Closed  bool   `yaml:"closed"`
	Event   string `yaml:"event"`
}

// SymbolUpserter persists symbols keyed by code.
type SymbolUpserter interface {
	Upsert(ctx context.Context, symbols []symentity.Symbol) error
}

// OverrideUpserter persists calendar overrides keyed by date.
type OverrideUpserter interface {
	Upsert(ctx context.Context, overrides []calentity.Override) error
}

// Load parses and validates a seed document.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile はファイルパスからシードを読み込みます。
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	return Load(fh)
}

func (f *File) validate() error {
	codes := make(map[string]bool, len(f.Symbols))
	for i, s := range f.Symbols {
		if strings.TrimSpace(s.Code) == "" || strings.TrimSpace(s.Market) == "" {
			return fmt.Errorf("symbols[%d]: code and market are required", i)
		}
		key := strings.ToUpper(s.Code)
		if codes[key] {
			return fmt.Errorf("symbols[%d]: duplicate code %q", i, s.Code)
		}
		codes[key] = true
	}
	for i, o := range f.Overrides {
		if _, err := time.Parse(calentity.DateLayout, o.Date); err != nil {
			return fmt.Errorf("overrides[%d]: invalid date %q", i, o.Date)
		}
		if o.Closed {
			continue
		}
		if _, _, err := caldomain.ParseWindow(o.Session); err != nil {
			return fmt.Errorf("overrides[%d] %s: %w", i, o.Date, err)
		}
	}
	return nil
}

// SymbolRows converts entries to rows; list order becomes sort_key.
func (f *File) SymbolRows() []symentity.Symbol {
	out := make([]symentity.Symbol, 0, len(f.Symbols))
	for i, s := range f.Symbols {
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		name := s.Name
		if name == "" {
			name = s.Code
		}
		out = append(out, symentity.Symbol{
			Code:     strings.ToUpper(strings.TrimSpace(s.Code)),
			Name:     name,
			Market:   strings.ToUpper(strings.TrimSpace(s.Market)),
			IsActive: active,
			SortKey:  i + 1,
		})
	}
	return out
}

// OverrideRows converts entries to calendar overrides.
func (f *File) OverrideRows() []calentity.Override {
	out := make([]calentity.Override, 0, len(f.Overrides))
	for _, o := range f.Overrides {
		out = append(out, calentity.Override{Date: o.Date, Session: o.Session, Closed: o.Closed, Event: o.Event})
	}
	return out
}

// Apply writes the seed into the stores.
func (f *File) Apply(ctx context.Context, symbols SymbolUpserter, overrides OverrideUpserter) error {
	if err := symbols.Upsert(ctx, f.SymbolRows()); err != nil {
		return fmt.Errorf("seed symbols: %w", err)
	}
	if err := overrides.Upsert(ctx, f.OverrideRows()); err != nil {
		return fmt.Errorf("seed overrides: %w", err)
	}
	return nil
}
