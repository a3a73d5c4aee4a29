package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// buildWorkbook renders one sheet with a bold header row.
func buildWorkbook(sheet string, headers []string, rows [][]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, bold); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

// sendWorkbook writes the workbook as a download named name.xlsx.
func sendWorkbook(c echo.Context, name, sheet string, headers []string, rows [][]any) error {
	buf, err := buildWorkbook(sheet, headers, rows)
	if err != nil {
		return apperror.NewInternal("Failed to build export").WithCause(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.xlsx", name))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

var ticketExportHeaders = []string{
	"Rank", "Ticket Number", "Unit", "Issue Description", "Reason",
	"Priority", "Status", "Attachments", "Date",
}

func ticketRows(ts []model.RepairTicket) [][]any {
	rows := make([][]any, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, []any{
			t.PriorityRank, t.TicketNumber, t.KaplanUnitNo, t.IssueDescription, t.Reason,
			string(t.Priority), string(t.TicketStatus), len(t.Attachments), t.Date.Format(time.DateOnly),
		})
	}
	return rows
}

var workOrderExportHeaders = []string{
	"Rank", "Work Order", "Unit", "Description", "Priority", "Status",
	"Tickets", "Service Type", "Technician", "Labour Hours", "Total Cost",
	"Time In", "Time Out",
}

func workOrderRows(wos []model.WorkOrder) [][]any {
	rows := make([][]any, 0, len(wos))
	for _, w := range wos {
		numbers := ""
		for i, t := range w.Tickets {
			if i > 0 {
				numbers += ", "
			}
			numbers += t.TicketNumber
		}
		rows = append(rows, []any{
			w.PriorityRank, strconv.FormatInt(w.WorkOrderID, 10), w.KaplanUnitNo, w.Description,
			string(w.Priority), string(w.TicketStatus), numbers, w.ServiceType,
			w.AssignedTechnician.Name, floatCell(w.TotalLabourHours), floatCell(w.TotalCost),
			timeCell(w.TimeIn), timeCell(w.TimeOut),
		})
	}
	return rows
}

func floatCell(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
