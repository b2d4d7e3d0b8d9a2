package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Dialogflow DialogflowConfig `yaml:"dialogflow"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Session    SessionConfig    `yaml:"session"`
	Quota      QuotaConfig      `yaml:"quota"`
	Mongo      MongoConfig      `yaml:"mongo"`
}

type ServerConfig struct {
	Port         string   `yaml:"port"`
	CORSOrigins  []string `yaml:"cors_origins"`
	CookieSecure bool     `yaml:"cookie_secure"`
	// MaxUploadBytes 는 multipart 업로드 파일의 최대 크기이다.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DialogflowConfig 는 intent detection 백엔드의 배포 식별자를 담는다.
// ProjectID, SubdomainRegion, RegionID, AgentID 중 하나라도 비어 있으면 매 요청마다 설정 오류로 응답한다.
type DialogflowConfig struct {
	ProjectID       string        `yaml:"project_id"`
	SubdomainRegion string        `yaml:"subdomain_region"`
	RegionID        string        `yaml:"region_id"`
	AgentID         string        `yaml:"agent_id"`
	LanguageCode    string        `yaml:"language_code"`
	TimeZone        string        `yaml:"time_zone"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// PipelineConfig 는 턴 처리 파이프라인의 동작 플래그를 정의한다.
type PipelineConfig struct {
	// UseEnhancedQueryForIntentDetection 이 true 이면 enhanced query 가 있을 때 이를 intent backend 로 보낸다.
	UseEnhancedQueryForIntentDetection bool `yaml:"use_enhanced_query_for_intent_detection"`
	// CanonicalLanguage 는 enhanced query 의 번역 대상 언어 이름이다. (예: English)
	CanonicalLanguage string `yaml:"canonical_language"`
	RecentMessages    int    `yaml:"recent_messages"`
	// ResponseShape 는 "minimal" 또는 "envelope" 이다.
	ResponseShape   string `yaml:"response_shape"`
	InstitutionName string `yaml:"institution_name"`
	Locale          string `yaml:"locale"`
}

type SessionConfig struct {
	InactivityWindow time.Duration `yaml:"inactivity_window"`
}

// QuotaConfig 는 생성형 호출(context enhancement, rewrite, file analysis)에 대한 분당/일일 한도를 정의한다.
type QuotaConfig struct {
	// 0 이하면 제한 없음으로 간주한다.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	c.ApplyEnv(os.Getenv)
	config = c
}

// Parse 는 YAML 을 읽어 기본값이 채워진 AppConfig 를 만든다.
func Parse(data []byte) (*AppConfig, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	c.fillDefaults()
	return c, nil
}

// Default 는 config.yaml 이 비어 있을 때 사용하는 기본 설정이다.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           "8080",
			CORSOrigins:    []string{"http://localhost:3000"},
			CookieSecure:   true,
			MaxUploadBytes: 10 << 20,
		},
		Logging: LoggingConfig{Level: "info"},
		Dialogflow: DialogflowConfig{
			LanguageCode: "en",
			TimeZone:     "Asia/Singapore",
			Timeout:      30 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
		},
		Pipeline: PipelineConfig{
			UseEnhancedQueryForIntentDetection: true,
			CanonicalLanguage:                  "English",
			RecentMessages:                     3,
			ResponseShape:                      "minimal",
			Locale:                             "Singapore",
		},
		Session: SessionConfig{InactivityWindow: 30 * time.Minute},
		Mongo:   MongoConfig{DBName: "assistchat"},
	}
}

func (c *AppConfig) fillDefaults() {
	d := Default()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = d.Server.MaxUploadBytes
	}
	if c.Dialogflow.LanguageCode == "" {
		c.Dialogflow.LanguageCode = d.Dialogflow.LanguageCode
	}
	if c.Dialogflow.TimeZone == "" {
		c.Dialogflow.TimeZone = d.Dialogflow.TimeZone
	}
	if c.Dialogflow.Timeout <= 0 {
		c.Dialogflow.Timeout = d.Dialogflow.Timeout
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = d.Gemini.Model
	}
	if c.Pipeline.CanonicalLanguage == "" {
		c.Pipeline.CanonicalLanguage = d.Pipeline.CanonicalLanguage
	}
	if c.Pipeline.RecentMessages <= 0 {
		c.Pipeline.RecentMessages = d.Pipeline.RecentMessages
	}
	if c.Pipeline.ResponseShape == "" {
		c.Pipeline.ResponseShape = d.Pipeline.ResponseShape
	}
	if c.Session.InactivityWindow <= 0 {
		c.Session.InactivityWindow = d.Session.InactivityWindow
	}
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = d.Mongo.DBName
	}
}

// ApplyEnv 는 배포 환경 변수로 YAML 값을 덮어쓴다. 비어 있는 환경 변수는 무시한다.
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Dialogflow.ProjectID, "GCLOUD_PROJECT_ID")
	set(&c.Dialogflow.SubdomainRegion, "GCLOUD_SUBDOMAIN_REGION")
	set(&c.Dialogflow.RegionID, "GCLOUD_REGION_ID")
	set(&c.Dialogflow.AgentID, "GCLOUD_AGENT_ID")
	set(&c.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Mongo.URI, "MONGO_URI")
	set(&c.Logging.Level, "LOG_LEVEL")
	set(&c.Server.Port, "PORT")
	if v := strings.TrimSpace(getenv("CORS_ORIGINS")); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
}

// Validate 는 intent backend 호출에 필요한 식별자가 모두 채워졌는지 검사한다.
func (d DialogflowConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ProjectID, validation.Required),
		validation.Field(&d.SubdomainRegion, validation.Required),
		validation.Field(&d.RegionID, validation.Required),
		validation.Field(&d.AgentID, validation.Required),
		validation.Field(&d.LanguageCode, validation.Required),
	)
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
