package utils

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// WriteCSV renders a homogeneous list of flat structs as comma separated text.
// The header comes from the json names of the first record's fields, a field
// containing a comma is wrapped in double quotes and lines are joined with \n.
// An empty list produces no output.
func WriteCSV[T any](w io.Writer, records []T) error {
	if len(records) == 0 {
		return nil
	}

	first := reflect.Indirect(reflect.ValueOf(records[0]))
	if first.Kind() != reflect.Struct {
		return fmt.Errorf("csv export needs struct records, got %s", first.Kind())
	}
	fields := csvFields(first.Type())

	lines := make([]string, 0, len(records)+1)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.name
	}
	lines = append(lines, strings.Join(header, ","))

	for _, rec := range records {
		v := reflect.Indirect(reflect.ValueOf(rec))
		cells := make([]string, len(fields))
		for i, f := range fields {
			val := cellString(v.Field(f.index))
			if strings.Contains(val, ",") {
				val = `"` + val + `"`
			}
			cells[i] = val
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

type csvField struct {
	name  string
	index int
}

func csvFields(t reflect.Type) []csvField {
	var fields []csvField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, csvField{name: name, index: i})
	}
	return fields
}

func cellString(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v.Interface())
}
