package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Server struct {
		Addr string `json:"addr"` // 仪表盘服务监听地址
	} `json:"server"`

	API struct {
		BaseURL string   `json:"base_url"` // 世界银行API基础地址
		Timeout Duration `json:"timeout"`  // 单次请求超时时间
	} `json:"api"`

	Refresh struct {
		Interval  Duration `json:"interval"`   // 报表刷新间隔
		ReportDir string   `json:"report_dir"` // 导出报表的存放目录
	} `json:"refresh"`

	SendEmail struct {
		Server   string   `json:"server"`   // 邮件服务器地址(host:port)
		Username string   `json:"username"` // 邮箱用户名
		Password string   `json:"password"` // 邮箱密码
		From     string   `json:"from"`     // 发件人
		To       []string `json:"to"`       // 收件人列表
		Subject  string   `json:"subject"`  // 邮件主题
		Enabled  bool     `json:"enabled"`  // 是否推送报表邮件
	} `json:"send_email"`

	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`
}

// Indicator 指标元数据: 世界银行指标代码、展示名称、数值单位
type Indicator struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

// DataConfig 承载静态数据配置: 非国家聚合标签、五大经济体、指标元数据。
// 这些是配置常量，不是从数据推导出来的。
type DataConfig struct {
	RemoveCountries []string             `json:"removecountries"`
	TopEconomies    []string             `json:"topeconomies"`
	Indicators      map[string]Indicator `json:"indicators"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

// Reload 重新读取配置文件并原地替换当前实例(供配置热更新使用)
func Reload(jsonFolder, jsonFile, dataJsonFile string) error {
	cfg, dcfg, err := loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		*instance = *cfg
	}
	if dataConfigInstance != nil {
		*dataConfigInstance = *dcfg
	}
	return nil
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std 转换回time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Snapshot 返回当前配置的副本(线程安全)。
// Reload会原地覆盖单例，读取方在每次使用前取副本，
// 整个操作过程中看到的都是同一份一致的配置。
func (c *Config) Snapshot() Config {
	mu.RLock()
	defer mu.RUnlock()
	return *c
}

// GetRemoveCountries 返回非国家聚合标签列表的副本(线程安全)
func (dc *DataConfig) GetRemoveCountries() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, len(dc.RemoveCountries))
	copy(out, dc.RemoveCountries)
	return out
}

// GetTopEconomies 返回五大经济体列表的副本(线程安全)
func (dc *DataConfig) GetTopEconomies() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, len(dc.TopEconomies))
	copy(out, dc.TopEconomies)
	return out
}

// GetIndicator 按键名查找指标元数据
func (dc *DataConfig) GetIndicator(key string) (Indicator, bool) {
	mu.RLock()
	defer mu.RUnlock()
	ind, ok := dc.Indicators[key]
	return ind, ok
}
