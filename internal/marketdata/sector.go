package marketdata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
)

// SectorPrefix marks sector list files in the sector directory.
const SectorPrefix = "DJ_"

// ReadSectorFile returns the stock symbols listed in a sector file, one per
// line, in file order without duplicates. Lines starting with # are
// comments. Files are Big5 encoded; valid UTF-8 is accepted as is.
func ReadSectorFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSectorNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("read sector file: %w", err)
	}

	text, err := decodeSectorText(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	seen := make(map[string]bool)
	var stocks []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		symbol := NormalizeSymbol(scanner.Text())
		if symbol == "" || strings.HasPrefix(symbol, "#") || seen[symbol] {
			continue
		}
		seen[symbol] = true
		stocks = append(stocks, symbol)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan sector file: %w", err)
	}
	return stocks, nil
}

func decodeSectorText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := traditionalchinese.Big5.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// SectorPath returns the list file of a sector.
func SectorPath(dir, sector string) string {
	return filepath.Join(dir, sector+".txt")
}

// ListSectors returns the sector names (DJ_*.txt stems) in dir, sorted.
func ListSectors(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sector directory: %w", err)
	}

	var sectors []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, SectorPrefix) || !strings.HasSuffix(name, ".txt") {
			continue
		}
		sectors = append(sectors, strings.TrimSuffix(name, ".txt"))
	}
	sort.Strings(sectors)
	return sectors, nil
}

// OutputName is the sector's output folder name (the DJ_ prefix dropped).
func OutputName(sector string) string {
	return strings.TrimPrefix(sector, SectorPrefix)
}
