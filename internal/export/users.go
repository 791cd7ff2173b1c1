// Package export renders store content as spreadsheets for the operator.
package export

import (
	"bytes"
	"fmt"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/xojiakbarxolboyev/telegrambot/internal/store"
)

// UsersSheet is the name of the single sheet of the users workbook.
const UsersSheet = "Users"

// UsersHeaders are the column titles of the users workbook.
var UsersHeaders = []string{"Status", "ID", "Name", "Age", "Region", "Phone"}

// UsersWorkbook builds an .xlsx file with one row per user, in the given order.
func UsersWorkbook(users []store.User) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), UsersSheet); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	header := lo.Map(UsersHeaders, func(h string, _ int) interface{} { return h })
	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, u := range users {
		if err := writeRow(f, i+2, []interface{}{u.Status, u.ID, u.Name, u.Age, u.Region, u.Phone}); err != nil {
			return nil, err
		}
	}
	if err := f.SetPanes(UsersSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("export: freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: row %d: %w", row, err)
	}
	if err := f.SetSheetRow(UsersSheet, cell, &values); err != nil {
		return fmt.Errorf("export: set row %d: %w", row, err)
	}
	return nil
}
