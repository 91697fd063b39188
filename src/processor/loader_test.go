package processor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"EcoInsight/src/datasource/worldbank"
)

// record 构造一条世界银行风格的原始记录
func record(country string, year int, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"country": map[string]string{"id": "", "value": country},
		"date":    strconv.Itoa(year),
		"value":   value,
	}
}

// newStubServer 按指标代码返回对应记录列表的假API
func newStubServer(data map[string][]map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for code, records := range data {
			if strings.Contains(r.URL.Path, code) {
				payload := []interface{}{
					map[string]interface{}{"page": 1, "pages": 1, "total": len(records)},
					records,
				}
				json.NewEncoder(w).Encode(payload)
				return
			}
		}
		http.NotFound(w, r)
	}))
}

func newTestLoader(serverURL string, removeCountries []string) *IndicatorLoader {
	client := worldbank.NewClient(serverURL, 5*time.Second)
	return NewIndicatorLoader(client, removeCountries)
}

func TestLoadCleansAndSorts(t *testing.T) {
	server := newStubServer(map[string][]map[string]interface{}{
		"EG.FEC.RNEW.ZS": {
			record("China", 2012, 11.0),
			record("World", 2010, 99.0),        // 聚合标签，应被剔除
			record("China", 2010, 12.5),
			record("Japan", 2011, nil),         // 空值，应被丢弃
			record("Japan", 2010, "6.25"),      // 字符串数值，应被解析
			record("High income", 2011, 50.0),  // 聚合标签，应被剔除
			record("Germany", 2011, 14.0),
		},
	})
	defer server.Close()

	loader := newTestLoader(server.URL, []string{"World", "High income"})
	df, err := loader.Load("EG.FEC.RNEW.ZS", nil, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if df.Nrow() != 4 {
		t.Fatalf("expected 4 rows, got %d", df.Nrow())
	}

	countries := df.Col("country").Records()
	for _, country := range countries {
		if country == "World" || country == "High income" {
			t.Errorf("aggregate label %q not removed", country)
		}
	}

	// 年份非递减
	years := df.Col("year").Records()
	prev := 0
	for i, y := range years {
		year, err := strconv.Atoi(y)
		if err != nil {
			t.Fatalf("year %q not an integer", y)
		}
		if i > 0 && year < prev {
			t.Errorf("years not sorted: %v", years)
		}
		prev = year
	}

	// 字符串数值被解析
	values := df.Col("value").Float()
	found := false
	for i, country := range countries {
		if country == "Japan" {
			found = true
			if values[i] != 6.25 {
				t.Errorf("expected Japan value 6.25, got %v", values[i])
			}
		}
	}
	if !found {
		t.Error("Japan row missing")
	}
}

func TestLoadEmptyResult(t *testing.T) {
	server := newStubServer(map[string][]map[string]interface{}{
		"EG.FEC.RNEW.ZS": {},
	})
	defer server.Close()

	loader := newTestLoader(server.URL, nil)
	df, err := loader.Load("EG.FEC.RNEW.ZS", nil, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 空结果仍然带完整列结构，下游不需要特判
	if df.Nrow() != 0 {
		t.Errorf("expected 0 rows, got %d", df.Nrow())
	}
	names := df.Names()
	if len(names) != 3 || names[0] != "country" || names[1] != "year" || names[2] != "value" {
		t.Errorf("unexpected columns: %v", names)
	}
}

func TestLoadFetchErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	loader := newTestLoader(server.URL, nil)
	_, err := loader.Load("EG.FEC.RNEW.ZS", nil, nil)

	var fetchErr *worldbank.FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected FetchError, got %T: %v", err, err)
	}
}

func TestLoadBadFieldsParseError(t *testing.T) {
	cases := map[string][]map[string]interface{}{
		"bad date":  {record("China", 0, 1.0)},
		"bad value": {record("China", 2010, "not-a-number")},
	}
	cases["bad date"][0]["date"] = "MRV"

	for name, records := range cases {
		server := newStubServer(map[string][]map[string]interface{}{
			"EG.FEC.RNEW.ZS": records,
		})

		loader := newTestLoader(server.URL, nil)
		_, err := loader.Load("EG.FEC.RNEW.ZS", nil, nil)
		server.Close()

		var parseErr *worldbank.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%s: expected ParseError, got %T: %v", name, err, err)
		}
	}
}
