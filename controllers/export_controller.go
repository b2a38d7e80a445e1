package controllers

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"patrimoine/models"
	"patrimoine/services"

	"github.com/beevik/etree"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportController renders the user's portfolio as CSV, XLSX or XML
// downloads. Exports always contain decrypted data, so all routes sit
// behind the auth middleware.
type ExportController struct {
	assets *services.AssetService
}

func NewExportController(assets *services.AssetService) *ExportController {
	return &ExportController{assets: assets}
}

var exportHeader = []string{
	"id", "name", "product_type", "category", "currency",
	"current_value", "cost_basis", "value_eur", "isin", "notes",
}

func exportRow(a *models.Asset) []string {
	return []string{
		a.ID,
		string(a.Name),
		a.ProductType,
		a.Category,
		a.Currency,
		strconv.FormatFloat(a.CurrentValue, 'f', 2, 64),
		strconv.FormatFloat(a.CostBasis, 'f', 2, 64),
		strconv.FormatFloat(a.EURValue(), 'f', 2, 64),
		a.ISIN,
		string(a.Notes),
	}
}

func exportFilename(ext string) string {
	return fmt.Sprintf("patrimoine_%s.%s", time.Now().Format("20060102"), ext)
}

func (ctl *ExportController) CSV(c *gin.Context) {
	assets, err := ctl.assets.List(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+exportFilename("csv"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write(exportHeader); err != nil {
		respondError(c, err)
		return
	}
	for i := range assets {
		if err := w.Write(exportRow(&assets[i])); err != nil {
			respondError(c, err)
			return
		}
	}
	w.Flush()
}

func (ctl *ExportController) XLSX(c *gin.Context) {
	assets, err := ctl.assets.List(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Patrimoine"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetRowStyle(sheet, 1, 1, headerStyle)

	for i := range assets {
		row := exportRow(&assets[i])
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+exportFilename("xlsx"))

	if err := f.Write(c.Writer); err != nil {
		respondError(c, err)
	}
}

func (ctl *ExportController) XML(c *gin.Context) {
	assets, err := ctl.assets.List(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("patrimoine")
	root.CreateAttr("exported", time.Now().Format(time.RFC3339))

	for i := range assets {
		a := &assets[i]
		el := root.CreateElement("asset")
		el.CreateAttr("id", a.ID)
		el.CreateElement("name").SetText(string(a.Name))
		el.CreateElement("productType").SetText(a.ProductType)
		el.CreateElement("category").SetText(a.Category)
		el.CreateElement("currency").SetText(a.Currency)
		el.CreateElement("currentValue").SetText(strconv.FormatFloat(a.CurrentValue, 'f', 2, 64))
		el.CreateElement("valueEur").SetText(strconv.FormatFloat(a.EURValue(), 'f', 2, 64))
		if a.ISIN != "" {
			el.CreateElement("isin").SetText(a.ISIN)
		}
		if len(a.Allocation) > 0 {
			allocEl := el.CreateElement("allocation")
			for category, pct := range a.Allocation {
				catEl := allocEl.CreateElement("part")
				catEl.CreateAttr("category", category)
				catEl.SetText(strconv.FormatFloat(pct, 'f', 2, 64))
			}
		}
	}

	doc.Indent(2)
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+exportFilename("xml"))

	if _, err := doc.WriteTo(c.Writer); err != nil {
		respondError(c, err)
	}
}

func (ctl *ExportController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export/csv", ctl.CSV)
	rg.GET("/export/xlsx", ctl.XLSX)
	rg.GET("/export/xml", ctl.XML)
}
