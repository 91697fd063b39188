// chart.go
package processor

// Trace 单条数据序列，字段按plotly的约定命名，前端直接渲染。
// 折线图: Type=scatter, Mode=lines, Name=国家名
// 柱状图: Type=bar
// 散点图: Type=scatter, Mode=markers, Text=逐点国家标签
type Trace struct {
	Type string        `json:"type"`
	Mode string        `json:"mode,omitempty"`
	Name string        `json:"name,omitempty"`
	X    []interface{} `json:"x"`
	Y    []float64     `json:"y"`
	Text []string      `json:"text,omitempty"`
}

// Axis 坐标轴布局
type Axis struct {
	Title string `json:"title"`
}

// Layout 图表布局: 标题与两条坐标轴
type Layout struct {
	Title string `json:"title"`
	XAxis Axis   `json:"xaxis"`
	YAxis Axis   `json:"yaxis"`
}

// Figure 图表描述符 = 数据序列 + 布局，一次报表固定产出五个
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}
