package cli

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableData holds the headers and rows of a plain table.
type TableData struct {
	headers []string
	rows    [][]string
}

// NewTableData starts a table with the given headers.
func NewTableData(headers ...string) *TableData {
	return &TableData{headers: headers, rows: make([][]string, 0)}
}

func (t *TableData) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// PrintTable writes data as a borderless, left-aligned table.
func PrintTable(w io.Writer, data *TableData) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(data.rows)
	table.Render()
	return nil
}
