// figures.go
package processor

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"EcoInsight/src/config"
)

// 数据配置缺失时的内置指标与经济体常量
var (
	defaultRenewable = config.Indicator{
		Code:  "EG.FEC.RNEW.ZS",
		Label: "Renewable Energy Consumption",
		Unit:  "Renewable % of Total Energy Consumption",
	}
	defaultCO2 = config.Indicator{
		Code:  "EN.ATM.CO2E.PC",
		Label: "CO2 Emissions",
		Unit:  "Metric Tons of CO2 Per Capita",
	}
	defaultEconomies = []string{"United States", "China", "Japan", "Germany", "United Kingdom"}
)

// ReportBuilder 组织两次指标加载，产出固定的五个图表描述符:
// 1. 可再生能源消费占比趋势折线(五大经济体)
// 2. 人均CO2排放趋势折线(五大经济体)
// 3. 最近共同年份可再生能源排名柱状
// 4. 最近共同年份CO2排放排名柱状
// 5. 可再生能源 vs CO2 散点
type ReportBuilder struct {
	loader    *IndicatorLoader
	renewable config.Indicator
	co2       config.Indicator
	economies []string
}

func NewReportBuilder(loader *IndicatorLoader, dcfg *config.DataConfig) *ReportBuilder {
	rb := &ReportBuilder{
		loader:    loader,
		renewable: defaultRenewable,
		co2:       defaultCO2,
		economies: defaultEconomies,
	}

	if dcfg != nil {
		if ind, ok := dcfg.GetIndicator("renewable"); ok {
			rb.renewable = ind
		}
		if ind, ok := dcfg.GetIndicator("co2"); ok {
			rb.co2 = ind
		}
		if economies := dcfg.GetTopEconomies(); len(economies) > 0 {
			rb.economies = economies
		}
	}
	return rb
}

// BuildReport 构建完整报表，固定返回五个图表描述符。
// 任一指标加载失败则整个报表失败；过滤后为空只会产出空序列，不算错误。
func (rb *ReportBuilder) BuildReport() ([]Figure, error) {
	// 1. 拉取两个指标的全量数据，再收窄到五大经济体
	dfRenewable, err := rb.loader.Load(rb.renewable.Code, nil, nil)
	if err != nil {
		return nil, err
	}
	dfCO2, err := rb.loader.Load(rb.co2.Code, nil, nil)
	if err != nil {
		return nil, err
	}

	dfRenewable = filterCountries(dfRenewable, rb.economies)
	dfCO2 = filterCountries(dfCO2, rb.economies)

	// 2. 计算共同绘图窗口:
	// 每个数据集内取"各国最早年份的最大值"为起点、"各国最晚年份的最小值"为终点，
	// 两个数据集再取起点的最大值、终点的最小值。
	// 这保证窗口内每个经济体在两个指标上逐年都有数据，有缺口的经济体会收窄全局窗口。
	startYear, endYear := 1, 0
	startRen, endRen, okRen := yearBounds(dfRenewable)
	startCO2, endCO2, okCO2 := yearBounds(dfCO2)
	if okRen && okCO2 {
		startYear = max(startRen, startCO2)
		endYear = min(endRen, endCO2)
	}

	// 3. 两张趋势折线图
	trendRenewable := restrictYears(dfRenewable, startYear, endYear)
	trendCO2 := restrictYears(dfCO2, startYear, endYear)

	figureOne := Figure{
		Data: rb.trendTraces(trendRenewable),
		Layout: Layout{
			Title: fmt.Sprintf("Top Five Economies %d-%d<br>%s", startYear, endYear, rb.renewable.Label),
			XAxis: Axis{Title: "Year"},
			YAxis: Axis{Title: rb.renewable.Unit},
		},
	}
	figureTwo := Figure{
		Data: rb.trendTraces(trendCO2),
		Layout: Layout{
			Title: fmt.Sprintf("Top Five Economies %d-%d<br>%s", startYear, endYear, rb.co2.Label),
			XAxis: Axis{Title: "Year"},
			YAxis: Axis{Title: rb.co2.Unit},
		},
	}

	// 4. 收窄到最近的共同年份
	recentRenewable := restrictYears(dfRenewable, endYear, endYear)
	recentCO2 := restrictYears(dfCO2, endYear, endYear)

	// 5. 两张排名柱状图: 可再生能源取降序前五，CO2取升序前五
	figureThree := Figure{
		Data: []Trace{rankingTrace(recentRenewable, true)},
		Layout: Layout{
			Title: fmt.Sprintf("Top Five Countries in %d<br>%s", endYear, rb.renewable.Label),
			XAxis: Axis{Title: "Country"},
			YAxis: Axis{Title: rb.renewable.Unit},
		},
	}
	figureFour := Figure{
		Data: []Trace{rankingTrace(recentCO2, false)},
		Layout: Layout{
			Title: fmt.Sprintf("Top Five Countries in %d<br>%s", endYear, rb.co2.Label),
			XAxis: Axis{Title: "Country"},
			YAxis: Axis{Title: rb.co2.Unit},
		},
	}

	// 6. 散点图: 按(country, year)内连接两个单年数据集
	figureFive := Figure{
		Data: []Trace{scatterTrace(recentRenewable, recentCO2)},
		Layout: Layout{
			Title: fmt.Sprintf("%s vs. %s<br>by Country in %d", rb.renewable.Label, rb.co2.Label, endYear),
			XAxis: Axis{Title: rb.renewable.Unit},
			YAxis: Axis{Title: rb.co2.Unit},
		},
	}

	// 7. 固定顺序返回
	return []Figure{figureOne, figureTwo, figureThree, figureFour, figureFive}, nil
}

// filterCountries 过滤出指定国家集合的行，保持原有行序
func filterCountries(df dataframe.DataFrame, names []string) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	return df.Filter(
		dataframe.F{
			Colname:    "country",
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return contains(names, el.String())
			},
		},
	)
}

// yearBounds 计算单个数据集的窗口边界:
// start = 各国最早年份的最大值, end = 各国最晚年份的最小值。
// 空数据集返回ok=false。
func yearBounds(df dataframe.DataFrame) (start, end int, ok bool) {
	if df.Nrow() == 0 {
		return 0, 0, false
	}

	countries := df.Col("country").Records()
	years := df.Col("year").Records()

	minYears := make(map[string]int)
	maxYears := make(map[string]int)
	for i, country := range countries {
		year, err := strconv.Atoi(years[i])
		if err != nil {
			continue
		}
		if prev, seen := minYears[country]; !seen || year < prev {
			minYears[country] = year
		}
		if prev, seen := maxYears[country]; !seen || year > prev {
			maxYears[country] = year
		}
	}

	first := true
	for country, minYear := range minYears {
		maxYear := maxYears[country]
		if first {
			start, end = minYear, maxYear
			first = false
			continue
		}
		if minYear > start {
			start = minYear
		}
		if maxYear < end {
			end = maxYear
		}
	}
	return start, end, true
}

// restrictYears 保留[start, end]区间内的行，end<start时结果为空
func restrictYears(df dataframe.DataFrame, start, end int) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	return df.Filter(
		dataframe.F{Colname: "year", Comparator: series.GreaterEq, Comparando: start},
	).Filter(
		dataframe.F{Colname: "year", Comparator: series.LessEq, Comparando: end},
	)
}

// trendTraces 按固定经济体顺序生成折线序列，每个经济体一条，以国家名命名
func (rb *ReportBuilder) trendTraces(df dataframe.DataFrame) []Trace {
	traces := make([]Trace, 0, len(rb.economies))
	for _, country := range rb.economies {
		trace := Trace{
			Type: "scatter",
			Mode: "lines",
			Name: country,
			X:    []interface{}{},
			Y:    []float64{},
		}

		if df.Nrow() > 0 {
			sub := df.Filter(
				dataframe.F{Colname: "country", Comparator: series.Eq, Comparando: country},
			)
			if sub.Nrow() > 0 {
				years := sub.Col("year").Records()
				for _, y := range years {
					year, err := strconv.Atoi(y)
					if err != nil {
						continue
					}
					trace.X = append(trace.X, year)
				}
				trace.Y = sub.Col("value").Float()
			}
		}
		traces = append(traces, trace)
	}
	return traces
}

// rankingTrace 对单年数据按数值排序后取前五，生成柱状序列。
// descending=true为降序。排序稳定，数值相同的行保持先前的相对顺序。
func rankingTrace(df dataframe.DataFrame, descending bool) Trace {
	type row struct {
		country string
		value   float64
	}

	rows := make([]row, 0, df.Nrow())
	if df.Nrow() > 0 {
		countries := df.Col("country").Records()
		values := df.Col("value").Float()
		for i, country := range countries {
			rows = append(rows, row{country: country, value: values[i]})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return rows[i].value > rows[j].value
		}
		return rows[i].value < rows[j].value
	})

	if len(rows) > 5 {
		rows = rows[:5]
	}

	trace := Trace{
		Type: "bar",
		X:    make([]interface{}, 0, len(rows)),
		Y:    make([]float64, 0, len(rows)),
	}
	for _, r := range rows {
		trace.X = append(trace.X, r.country)
		trace.Y = append(trace.Y, r.value)
	}
	return trace
}

// scatterTrace 按(country, year)内连接两个单年数据集，
// x=可再生能源数值, y=CO2数值, 逐点标签为国家名。
// 只有同时出现在两个数据集中的经济体才会留下散点。
func scatterTrace(dfRenewable, dfCO2 dataframe.DataFrame) Trace {
	trace := Trace{
		Type: "scatter",
		Mode: "markers",
		X:    []interface{}{},
		Y:    []float64{},
		Text: []string{},
	}

	if dfRenewable.Nrow() == 0 || dfCO2.Nrow() == 0 {
		return trace
	}

	// 两边的value列重命名后再连接，避免同名列参与连接键
	renewable := dfRenewable.Rename("renewable", "value")
	co2 := dfCO2.Rename("co2", "value")
	joined := renewable.InnerJoin(co2, "country", "year")
	if joined.Error() != nil || joined.Nrow() == 0 {
		return trace
	}

	xs := joined.Col("renewable").Float()
	for _, x := range xs {
		trace.X = append(trace.X, x)
	}
	trace.Y = joined.Col("co2").Float()
	trace.Text = joined.Col("country").Records()
	return trace
}
