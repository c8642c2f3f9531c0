package export

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	excelMaxRows      = 1048576
	excelMaxSheetName = 31
	defaultSheetName  = "Sheet1"
)

// EncodeXLSX writes the document as a workbook with a single sheet named
// after the table: a bold header row of column names followed by one row
// per record.
func (d *Document) EncodeXLSX(w io.Writer) error {
	if len(d.Records)+1 > excelMaxRows {
		return fmt.Errorf("xlsx row limit exceeded: %d records", len(d.Records))
	}
	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	sheet := sheetName(d.Table)
	if def := file.GetSheetName(0); def != sheet {
		file.SetSheetName(def, sheet)
	}
	stream, err := file.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx stream: %w", err)
	}
	headerStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	header := make([]any, len(d.Columns))
	for i, col := range d.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col}
	}
	if err := stream.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, rec := range d.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rec.Values()
		cells := make([]any, len(values))
		for j, v := range values {
			cells[j] = xlsxValue(v)
		}
		if err := stream.SetRow(cell, cells); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// xlsxValue maps driver values to cell values. Blobs and times are
// rendered the same way the JSON document renders them.
func xlsxValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return finiteValue(v)
	}
}

func sheetName(table string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, table)
	name = strings.Trim(name, "'")
	if name == "" {
		return defaultSheetName
	}
	if utf8.RuneCountInString(name) > excelMaxSheetName {
		name = string([]rune(name)[:excelMaxSheetName])
	}
	return name
}
