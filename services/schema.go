package services

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arneor/vault-api/models"
)

// Kind selects the coercion rule applied to a cell.
type Kind int

const (
	KindString Kind = iota
	KindDecimal
	KindInt
)

// Column is one positional field of a sheet. Default is used for strings
// when the cell is missing or empty; numeric kinds default to 0.
type Column struct {
	Name    string
	Kind    Kind
	Default string
}

// Schema describes a collection: its sheet and the fixed column order.
// Columns are matched by position only.
type Schema struct {
	Sheet   string
	Columns []Column
}

// Range is the whole-column range covering the schema, e.g. "Partners!A:F".
func (s Schema) Range() string {
	return fmt.Sprintf("%s!A:%s", s.Sheet, columnLetter(len(s.Columns)-1))
}

// RowRange addresses a single data row (0-based, header excluded).
func (s Schema) RowRange(row int) string {
	n := row + 2
	return fmt.Sprintf("%s!A%d:%s%d", s.Sheet, n, columnLetter(len(s.Columns)-1), n)
}

// CellRange addresses columns [first,last] of a single data row.
func (s Schema) CellRange(row, first, last int) string {
	n := row + 2
	return fmt.Sprintf("%s!%s%d:%s%d", s.Sheet, columnLetter(first), n, columnLetter(last), n)
}

// Header returns the column names as a sheet row.
func (s Schema) Header() []interface{} {
	out := make([]interface{}, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

var (
	PartnersSchema = Schema{Sheet: "Partners", Columns: []Column{
		{Name: "Partner_ID"}, {Name: "Partner_Name"}, {Name: "Current_Balance", Kind: KindDecimal},
		{Name: "Phone"}, {Name: "Email"}, {Name: "Last_Updated"},
	}}
	TransactionsSchema = Schema{Sheet: "Transactions", Columns: []Column{
		{Name: "Transaction_ID"}, {Name: "Date"}, {Name: "Type", Default: string(models.TransactionExpense)},
		{Name: "Category"}, {Name: "Amount", Kind: KindDecimal}, {Name: "Partner_Account"},
		{Name: "Description"}, {Name: "Payment_Method"}, {Name: "Tags"}, {Name: "Added_By"}, {Name: "Timestamp"},
	}}
	BudgetsSchema = Schema{Sheet: "Budgets", Columns: []Column{
		{Name: "Category"}, {Name: "Monthly_Budget", Kind: KindDecimal}, {Name: "Quarterly_Budget", Kind: KindDecimal},
		{Name: "Yearly_Budget", Kind: KindDecimal}, {Name: "Current_Spent", Kind: KindDecimal}, {Name: "Remaining", Kind: KindDecimal},
	}}
	TransfersSchema = Schema{Sheet: "Inter_Partner_Transfers", Columns: []Column{
		{Name: "Transfer_ID"}, {Name: "Date"}, {Name: "From_Partner"}, {Name: "To_Partner"},
		{Name: "Amount", Kind: KindDecimal}, {Name: "Purpose"}, {Name: "Timestamp"},
	}}
	MonthlySummarySchema = Schema{Sheet: "Monthly_Summary", Columns: []Column{
		{Name: "Month"}, {Name: "Year", Kind: KindInt}, {Name: "Total_Revenue", Kind: KindDecimal},
		{Name: "Total_Expenses", Kind: KindDecimal}, {Name: "Net_Profit_Loss", Kind: KindDecimal},
		{Name: "Cash_Balance", Kind: KindDecimal}, {Name: "Burn_Rate", Kind: KindDecimal}, {Name: "Notes"},
	}}
	SettingsSchema = Schema{Sheet: "Settings", Columns: []Column{
		{Name: "Setting_Name"}, {Name: "Setting_Value"}, {Name: "Last_Modified"},
	}}
)

// AllSchemas lists every collection in provisioning order.
var AllSchemas = []Schema{
	PartnersSchema, TransactionsSchema, BudgetsSchema, TransfersSchema, MonthlySummarySchema, SettingsSchema,
}

// Decode maps sheet rows onto T. The first row is the header and is always
// skipped. Struct fields are bound to columns through their `sheet` tag; an
// int field tagged `sheet:"-"` named Row receives the data row index.
func Decode[T any](s Schema, rows [][]interface{}) ([]T, error) {
	if len(rows) <= 1 {
		return []T{}, nil
	}

	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("decode %s: %s is not a struct", s.Sheet, t)
	}
	binding, rowField, err := bindColumns(s, t)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows)-1)
	for i, row := range rows[1:] {
		var rec T
		v := reflect.ValueOf(&rec).Elem()
		for col, fieldIdx := range binding {
			if fieldIdx < 0 {
				continue
			}
			setCell(v.Field(fieldIdx), s.Columns[col], cellAt(row, col))
		}
		if rowField >= 0 {
			v.Field(rowField).SetInt(int64(i))
		}
		out = append(out, rec)
	}
	return out, nil
}

// Encode renders rec as a sheet row in schema order.
func Encode[T any](s Schema, rec T) ([]interface{}, error) {
	v := reflect.ValueOf(rec)
	binding, _, err := bindColumns(s, v.Type())
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(s.Columns))
	for col, fieldIdx := range binding {
		if fieldIdx < 0 {
			out[col] = ""
			continue
		}
		f := v.Field(fieldIdx)
		switch val := f.Interface().(type) {
		case decimal.Decimal:
			out[col] = val.String()
		case int:
			out[col] = strconv.Itoa(val)
		default:
			out[col] = f.String()
		}
	}
	return out, nil
}

func bindColumns(s Schema, t reflect.Type) ([]int, int, error) {
	byName := map[string]int{}
	rowField := -1
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("sheet")
		switch {
		case tag == "-" && sf.Name == "Row" && sf.Type.Kind() == reflect.Int:
			rowField = i
		case tag != "" && tag != "-":
			byName[tag] = i
		}
	}
	binding := make([]int, len(s.Columns))
	for col, c := range s.Columns {
		idx, ok := byName[c.Name]
		if !ok {
			binding[col] = -1
			continue
		}
		if err := checkKind(c, t.Field(idx)); err != nil {
			return nil, -1, fmt.Errorf("schema %s: %w", s.Sheet, err)
		}
		binding[col] = idx
	}
	return binding, rowField, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func checkKind(c Column, sf reflect.StructField) error {
	switch c.Kind {
	case KindDecimal:
		if sf.Type != decimalType {
			return fmt.Errorf("column %s needs a decimal field, %s is %s", c.Name, sf.Name, sf.Type)
		}
	case KindInt:
		if sf.Type.Kind() != reflect.Int {
			return fmt.Errorf("column %s needs an int field, %s is %s", c.Name, sf.Name, sf.Type)
		}
	default:
		if sf.Type.Kind() != reflect.String {
			return fmt.Errorf("column %s needs a string field, %s is %s", c.Name, sf.Name, sf.Type)
		}
	}
	return nil
}

func cellAt(row []interface{}, col int) string {
	if col >= len(row) || row[col] == nil {
		return ""
	}
	switch v := row[col].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func setCell(f reflect.Value, c Column, raw string) {
	switch c.Kind {
	case KindDecimal:
		f.Set(reflect.ValueOf(parseDecimal(raw)))
	case KindInt:
		f.SetInt(parseIntPrefix(raw))
	default:
		if raw == "" {
			raw = c.Default
		}
		f.SetString(raw)
	}
}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseDecimal accepts the leading numeric part of a cell and falls back
// to zero, so "12abc" reads as 12 and "abc" as 0.
func parseDecimal(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return d
	}
	if m := numberPrefix.FindString(trimmed); m != "" {
		if d, err := decimal.NewFromString(m); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func parseIntPrefix(raw string) int64 {
	trimmed := strings.TrimSpace(raw)
	end := 0
	for end < len(trimmed) {
		ch := trimmed[end]
		if (ch >= '0' && ch <= '9') || (end == 0 && (ch == '-' || ch == '+')) {
			end++
			continue
		}
		break
	}
	n, err := strconv.ParseInt(trimmed[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
