// loader.go
package processor

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"EcoInsight/src/datasource/worldbank"
)

// Observation 一条清洗后的观测: 国家、年份、数值
type Observation struct {
	Country string
	Year    int
	Value   float64
}

// IndicatorLoader 负责拉取并清洗单个指标的数据。
// exclude是注入的非国家聚合标签集合(区域分组、收入分级、World等)，
// 属于静态配置，构造后不再变化。
type IndicatorLoader struct {
	client  *worldbank.Client
	exclude map[string]bool
}

func NewIndicatorLoader(client *worldbank.Client, removeCountries []string) *IndicatorLoader {
	exclude := make(map[string]bool, len(removeCountries))
	for _, name := range removeCountries {
		exclude[name] = true
	}
	return &IndicatorLoader{
		client:  client,
		exclude: exclude,
	}
}

// Load 拉取指标数据并清洗为(country, year, value)三列的DataFrame。
// countries为nil时取全部国家，params为nil时使用客户端默认查询参数。
// 清洗规则:
//  1. value为null或空串的记录丢弃
//  2. 国家名命中聚合标签集合的记录丢弃
//  3. 结果按年份升序稳定排序
//
// 请求或解析失败时错误原样向上传播，不重试，不返回部分结果。
func (l *IndicatorLoader) Load(indicator string, countries []string, params map[string]string) (dataframe.DataFrame, error) {
	records, err := l.client.Fetch(indicator, countries, params)
	if err != nil {
		return emptyObservations(), err
	}

	observations := make([]Observation, 0, len(records))
	for _, rec := range records {
		value, ok, err := coerceValue(rec.Value)
		if err != nil {
			return emptyObservations(), err
		}
		if !ok {
			continue
		}

		if l.exclude[rec.Country.Value] {
			continue
		}

		year, err := strconv.Atoi(rec.Date)
		if err != nil {
			return emptyObservations(), &worldbank.ParseError{Field: "date", Err: err}
		}

		observations = append(observations, Observation{
			Country: rec.Country.Value,
			Year:    year,
			Value:   value,
		})
	}

	// 按年份升序，同年保持原始相对顺序
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Year < observations[j].Year
	})

	return observationsToDataFrame(observations), nil
}

// coerceValue 把接口返回的value字段转成float64。
// ok=false表示该记录应被丢弃(null或空串)。
func coerceValue(raw interface{}) (value float64, ok bool, err error) {
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case string:
		if v == "" {
			return 0, false, nil
		}
		parsed, parseErr := strconv.ParseFloat(v, 64)
		if parseErr != nil {
			return 0, false, &worldbank.ParseError{Field: "value", Err: parseErr}
		}
		return parsed, true, nil
	default:
		return 0, false, &worldbank.ParseError{Field: "value", Err: fmt.Errorf("无法处理的类型 %T", raw)}
	}
}

func observationsToDataFrame(observations []Observation) dataframe.DataFrame {
	countries := make([]string, len(observations))
	years := make([]int, len(observations))
	values := make([]float64, len(observations))
	for i, obs := range observations {
		countries[i] = obs.Country
		years[i] = obs.Year
		values[i] = obs.Value
	}

	return dataframe.New(
		series.New(countries, series.String, "country"),
		series.New(years, series.Int, "year"),
		series.New(values, series.Float, "value"),
	)
}

// emptyObservations 返回零行但列结构完整的DataFrame，
// 下游过滤与连接操作不需要对空结果做特判。
func emptyObservations() dataframe.DataFrame {
	return observationsToDataFrame(nil)
}

func contains(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
