package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// MemoryStore is an in-process SheetStore used when no spreadsheet is
// configured and by tests. It follows the A1 semantics the ledger relies on.
type MemoryStore struct {
	mu     sync.Mutex
	order  []string
	sheets map[string][][]interface{}

	// Fail, when set, is consulted before every call. A non-nil error
	// aborts the call.
	Fail func(op, rng string) error

	reads int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[string][][]interface{})}
}

// Reads is the number of ReadRange calls served so far.
func (m *MemoryStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Rows returns a copy of a sheet, header included.
func (m *MemoryStore) Rows(sheet string) [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.sheets[sheet])
}

// Seed replaces a sheet's content, creating the sheet when needed.
func (m *MemoryStore) Seed(sheet string, rows [][]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[sheet]; !ok {
		m.order = append(m.order, sheet)
	}
	m.sheets[sheet] = copyRows(rows)
}

func (m *MemoryStore) ReadRange(ctx context.Context, rng string) ([][]interface{}, error) {
	if err := m.check("read", rng); err != nil {
		return nil, err
	}
	r, err := parseA1(rng)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	data, ok := m.sheets[r.sheet]
	if !ok {
		return nil, missingSheet("read "+rng, r.sheet)
	}

	out := [][]interface{}{}
	for i, row := range data {
		if !r.containsRow(i) {
			continue
		}
		cells := []interface{}{}
		for j, cell := range row {
			if r.containsCol(j) {
				cells = append(cells, cell)
			}
		}
		out = append(out, trimRow(cells))
	}
	// the API drops trailing empty rows
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *MemoryStore) AppendRows(ctx context.Context, rng string, rows [][]interface{}) error {
	if err := m.check("append", rng); err != nil {
		return err
	}
	r, err := parseA1(rng)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sheets[r.sheet]
	if !ok {
		return missingSheet("append "+rng, r.sheet)
	}
	for _, row := range rows {
		data = append(data, placeRow(nil, r.firstCol, row))
	}
	m.sheets[r.sheet] = data
	return nil
}

func (m *MemoryStore) UpdateRange(ctx context.Context, rng string, rows [][]interface{}) error {
	if err := m.check("update", rng); err != nil {
		return err
	}
	r, err := parseA1(rng)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sheets[r.sheet]
	if !ok {
		return missingSheet("update "+rng, r.sheet)
	}
	start := r.firstRow
	if start < 0 {
		start = 0
	}
	for i, row := range rows {
		idx := start + i
		for len(data) <= idx {
			data = append(data, []interface{}{})
		}
		data[idx] = placeRow(data[idx], r.firstCol, row)
	}
	m.sheets[r.sheet] = data
	return nil
}

func (m *MemoryStore) AddSheet(ctx context.Context, title string) error {
	if err := m.check("add sheet", title); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[title]; ok {
		return &RemoteError{Op: "add sheet " + title, Status: http.StatusBadRequest,
			Err: fmt.Errorf("a sheet with the name %q already exists", title)}
	}
	m.order = append(m.order, title)
	m.sheets[title] = [][]interface{}{}
	return nil
}

func (m *MemoryStore) DeleteRows(ctx context.Context, sheet string, start, end int64) error {
	if err := m.check("delete rows", sheet); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %s: %w", sheet, ErrNotFound)
	}
	if start < 0 || end <= start || int(start) >= len(data) {
		return &RemoteError{Op: "delete rows " + sheet, Status: http.StatusBadRequest,
			Err: fmt.Errorf("invalid row range [%d,%d)", start, end)}
	}
	if int(end) > len(data) {
		end = int64(len(data))
	}
	m.sheets[sheet] = append(data[:start:start], data[end:]...)
	return nil
}

func (m *MemoryStore) ListSheets(ctx context.Context) ([]string, error) {
	if err := m.check("list sheets", ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...), nil
}

func (m *MemoryStore) check(op, rng string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, rng)
}

func missingSheet(op, sheet string) error {
	return &RemoteError{Op: op, Status: http.StatusBadRequest,
		Err: fmt.Errorf("unable to parse range: sheet %s does not exist", sheet)}
}

// a1Range is a parsed A1 reference. Rows and columns are 0-based; -1 means
// unbounded.
type a1Range struct {
	sheet             string
	firstCol, lastCol int
	firstRow, lastRow int
}

func (r a1Range) containsRow(i int) bool {
	return (r.firstRow < 0 || i >= r.firstRow) && (r.lastRow < 0 || i <= r.lastRow)
}

func (r a1Range) containsCol(j int) bool {
	return j >= r.firstCol && (r.lastCol < 0 || j <= r.lastCol)
}

func parseA1(rng string) (a1Range, error) {
	sheet, cells, ok := strings.Cut(rng, "!")
	if !ok || sheet == "" {
		return a1Range{}, fmt.Errorf("invalid range %q", rng)
	}
	r := a1Range{sheet: strings.Trim(sheet, "'"), lastCol: -1, firstRow: -1, lastRow: -1}

	from, to, hasTo := strings.Cut(cells, ":")
	col, row, err := parseCell(from)
	if err != nil {
		return a1Range{}, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	r.firstCol, r.firstRow = col, row
	if !hasTo {
		r.lastCol, r.lastRow = col, row
		if row < 0 {
			r.lastRow = -1
		}
		return r, nil
	}
	col, row, err = parseCell(to)
	if err != nil {
		return a1Range{}, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	r.lastCol, r.lastRow = col, row
	return r, nil
}

func parseCell(ref string) (int, int, error) {
	i := 0
	col := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("missing column in %q", ref)
	}
	if i == len(ref) {
		return col - 1, -1, nil
	}
	n, err := strconv.Atoi(ref[i:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid row in %q", ref)
	}
	return col - 1, n - 1, nil
}

func placeRow(dst []interface{}, firstCol int, values []interface{}) []interface{} {
	need := firstCol + len(values)
	out := make([]interface{}, max(len(dst), need))
	copy(out, dst)
	for j := len(dst); j < firstCol; j++ {
		out[j] = ""
	}
	copy(out[firstCol:], values)
	return out
}

func trimRow(row []interface{}) []interface{} {
	end := len(row)
	for end > 0 {
		if s, ok := row[end-1].(string); ok && s == "" || row[end-1] == nil {
			end--
			continue
		}
		break
	}
	return row[:end]
}

func copyRows(rows [][]interface{}) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = append([]interface{}(nil), r...)
	}
	return out
}
