// reportpush.go
package datapush

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"EcoInsight/src/config"
	"EcoInsight/src/processor"
)

// ExportExcel 把五个图表描述符导出为xlsx报表:
// 每个图表一个工作表(数据 + 内嵌图表)，外加一个汇总表。
func ExportExcel(figures []processor.Figure, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, figure := range figures {
		sheet := fmt.Sprintf("Chart%d", i+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("创建工作表失败: %w", err)
			}
		}

		if err := writeFigureSheet(f, sheet, figure); err != nil {
			return fmt.Errorf("写入工作表%s失败: %w", sheet, err)
		}
	}

	if err := writeSummarySheet(f, figures); err != nil {
		return fmt.Errorf("写入汇总表失败: %w", err)
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// writeFigureSheet 写入单个图表的数据区并内嵌对应类型的Excel图表。
// 数据区: A1为标题，第2行为各序列表头，每条序列占两列(x, y)，
// 散点图的逐点标签额外占一列。
func writeFigureSheet(f *excelize.File, sheet string, figure processor.Figure) error {
	title := strings.ReplaceAll(figure.Layout.Title, "<br>", " ")
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}

	maxRows := 0
	chartSeries := make([]excelize.ChartSeries, 0, len(figure.Data))
	col := 1

	for _, trace := range figure.Data {
		xCol, yCol := col, col+1
		col += 2

		name := trace.Name
		if name == "" {
			name = figure.Layout.YAxis.Title
		}

		xHeader, err := excelize.CoordinatesToCellName(xCol, 2)
		if err != nil {
			return err
		}
		yHeader, err := excelize.CoordinatesToCellName(yCol, 2)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, xHeader, figure.Layout.XAxis.Title)
		f.SetCellValue(sheet, yHeader, name)

		for row := 0; row < len(trace.Y); row++ {
			xCell, err := excelize.CoordinatesToCellName(xCol, row+3)
			if err != nil {
				return err
			}
			yCell, err := excelize.CoordinatesToCellName(yCol, row+3)
			if err != nil {
				return err
			}
			if row < len(trace.X) {
				f.SetCellValue(sheet, xCell, trace.X[row])
			}
			f.SetCellValue(sheet, yCell, trace.Y[row])
		}

		// 散点图的逐点标签
		if len(trace.Text) > 0 {
			labelCol := col
			col++
			labelHeader, err := excelize.CoordinatesToCellName(labelCol, 2)
			if err != nil {
				return err
			}
			f.SetCellValue(sheet, labelHeader, "Country")
			for row, label := range trace.Text {
				cell, err := excelize.CoordinatesToCellName(labelCol, row+3)
				if err != nil {
					return err
				}
				f.SetCellValue(sheet, cell, label)
			}
		}

		if len(trace.Y) > maxRows {
			maxRows = len(trace.Y)
		}
		if len(trace.Y) == 0 {
			continue
		}

		xName, err := excelize.ColumnNumberToName(xCol)
		if err != nil {
			return err
		}
		yName, err := excelize.ColumnNumberToName(yCol)
		if err != nil {
			return err
		}
		chartSeries = append(chartSeries, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$2", sheet, yName),
			Categories: fmt.Sprintf("%s!$%s$3:$%s$%d", sheet, xName, xName, len(trace.Y)+2),
			Values:     fmt.Sprintf("%s!$%s$3:$%s$%d", sheet, yName, yName, len(trace.Y)+2),
		})
	}

	// 没有任何数据点时只保留数据区，不画图
	if len(chartSeries) == 0 {
		return nil
	}

	anchor, err := excelize.CoordinatesToCellName(1, maxRows+5)
	if err != nil {
		return err
	}
	return f.AddChart(sheet, anchor, &excelize.Chart{
		Type:   chartType(figure.Data[0]),
		Series: chartSeries,
		Title:  []excelize.RichTextRun{{Text: title}},
	})
}

// chartType 描述符类型映射到excelize图表类型
func chartType(trace processor.Trace) excelize.ChartType {
	switch {
	case trace.Type == "bar":
		return excelize.Col
	case trace.Type == "scatter" && trace.Mode == "markers":
		return excelize.Scatter
	default:
		return excelize.Line
	}
}

// writeSummarySheet 汇总表: 每个图表的标题、数据量和指标值范围，
// 数值按英文区域习惯格式化(千位分隔、两位小数)
func writeSummarySheet(f *excelize.File, figures []processor.Figure) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	printer := message.NewPrinter(language.English)

	f.SetCellValue(sheet, "A1", "Chart")
	f.SetCellValue(sheet, "B1", "Series")
	f.SetCellValue(sheet, "C1", "Points")
	f.SetCellValue(sheet, "D1", "Min Value")
	f.SetCellValue(sheet, "E1", "Max Value")

	for i, figure := range figures {
		points := 0
		minValue, maxValue := 0.0, 0.0
		for _, trace := range figure.Data {
			for _, v := range trace.Y {
				if points == 0 || v < minValue {
					minValue = v
				}
				if points == 0 || v > maxValue {
					maxValue = v
				}
				points++
			}
		}

		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), strings.ReplaceAll(figure.Layout.Title, "<br>", " "))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), len(figure.Data))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), points)
		if points > 0 {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), printer.Sprintf("%.2f", minValue))
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), printer.Sprintf("%.2f", maxValue))
		}
	}
	return nil
}

// SendReport 把导出的报表作为附件发送给配置的收件人
func SendReport(cfg *config.Config, attachmentPath string) error {
	e := email.NewEmail()
	e.From = cfg.SendEmail.From
	e.To = cfg.SendEmail.To
	e.Subject = cfg.SendEmail.Subject
	e.Text = []byte("最新的环境指标仪表盘报表见附件。")

	if _, err := e.AttachFile(attachmentPath); err != nil {
		return fmt.Errorf("添加附件失败: %w", err)
	}

	host := cfg.SendEmail.Server
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	auth := smtp.PlainAuth("", cfg.SendEmail.Username, cfg.SendEmail.Password, host)

	if err := e.Send(cfg.SendEmail.Server, auth); err != nil {
		return fmt.Errorf("发送报表邮件失败: %w", err)
	}
	return nil
}
