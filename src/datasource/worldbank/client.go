// client.go
package worldbank

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL 世界银行v2接口的默认地址
const DefaultBaseURL = "http://api.worldbank.org/v2"

// FetchError 请求层错误: 网络失败或非2xx响应
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("世界银行API请求失败: %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError 解析层错误: 响应结构不符合预期或字段无法转换
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("世界银行API响应解析失败(%s): %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CountryRef 记录中嵌套的国家字段
type CountryRef struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Record 接口返回的单条原始记录。
// value可能是数值、字符串或null，留到清洗阶段再做类型转换。
type Record struct {
	Country CountryRef  `json:"country"`
	Date    string      `json:"date"`
	Value   interface{} `json:"value"`
}

// Client 世界银行API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch 拉取指定指标、指定国家集合的原始记录。
// countries为空时取全部国家("all")，路径中以分号连接国家代码。
// 默认查询参数 format=json, per_page=30000，params中的同名项覆盖默认值。
// 响应为两段式数组: [0]分页元信息, [1]记录列表。
func (c *Client) Fetch(indicator string, countries []string, params map[string]string) ([]Record, error) {
	if len(countries) == 0 {
		countries = []string{"all"}
	}

	// 1. 拼接请求地址
	query := url.Values{}
	query.Set("format", "json")
	query.Set("per_page", "30000")
	for k, v := range params {
		query.Set(k, v)
	}
	reqURL := fmt.Sprintf("%s/country/%s/indicator/%s?%s",
		c.baseURL,
		strings.Join(countries, ";"),
		indicator,
		query.Encode())

	// 2. 发起请求
	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, &FetchError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: reqURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: reqURL, Err: err}
	}

	// 3. 解析两段式响应
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ParseError{Field: "response", Err: err}
	}
	if len(payload) < 2 {
		return nil, &ParseError{Field: "response", Err: fmt.Errorf("预期两段式响应，实际%d段", len(payload))}
	}

	// 4. 解析记录列表
	var records []Record
	if err := json.Unmarshal(payload[1], &records); err != nil {
		return nil, &ParseError{Field: "records", Err: err}
	}

	return records, nil
}
