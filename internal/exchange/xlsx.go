package exchange

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/loci/internal/content"
)

const (
	palacesSheet      = "Palaces"
	associationsSheet = "Associations"
)

// WriteWorkbook writes doc as a spreadsheet: one row per palace on the
// Palaces sheet and one row per stored line on the Associations sheet.
// Lines that do not parse keep their raw text in the Bullet column.
func WriteWorkbook(doc *Document, w io.Writer) error {
	doc.normalize()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", palacesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(associationsSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	widest := 0
	for _, p := range doc.Palaces {
		widest = max(widest, len(p.Items))
	}
	header := []any{"Palace"}
	for i := 1; i <= widest; i++ {
		header = append(header, fmt.Sprintf("Item %d", i))
	}
	if err := writeRow(f, palacesSheet, 1, header, bold); err != nil {
		return err
	}
	for i, p := range doc.Palaces {
		row := []any{p.Name}
		for _, item := range p.Items {
			row = append(row, item)
		}
		if err := writeRow(f, palacesSheet, i+2, row, 0); err != nil {
			return err
		}
	}

	header = []any{"Category", "Topic", "Palace", "Item", "Bullet", "Imagery"}
	if err := writeRow(f, associationsSheet, 1, header, bold); err != nil {
		return err
	}
	r := 2
	for _, c := range doc.Categories {
		for _, a := range c.Associations {
			for _, e := range content.Parse(a.Content) {
				row := []any{c.Name, a.Topic, a.PalaceName, e.Item, e.Bullet, e.Imagery}
				if !e.OK {
					row = []any{c.Name, a.Topic, a.PalaceName, "", e.Raw, ""}
				}
				if err := writeRow(f, associationsSheet, r, row, 0); err != nil {
					return err
				}
				r++
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func writeRow(f *excelize.File, sheet string, row int, values []any, style int) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}
	if style == 0 || len(values) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, last, style)
}
