package config

import "time"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Web     WebConfig     `yaml:"web"`
	Storage StorageConfig `yaml:"storage"`
	Vision  VisionConfig  `yaml:"vision"`
	TTS     TTSConfig     `yaml:"tts"`
	History HistoryConfig `yaml:"history"`
	Image   ImageConfig   `yaml:"image"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

type StorageConfig struct {
	Driver    string       `yaml:"driver"`
	Namespace string       `yaml:"namespace"`
	SQLite    SQLiteConfig `yaml:"sqlite,omitempty"`
	Redis     RedisConfig  `yaml:"redis,omitempty"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type VisionConfig struct {
	ModelName string        `yaml:"model_name"`
	BaseURL   string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Configured reports whether analysis can run at all. A missing key disables
// the whole analyze surface with a persistent warning at startup.
func (c VisionConfig) Configured() bool {
	return c.APIKey != ""
}

type TTSConfig struct {
	BaseURL string `yaml:"url"`
	AppID   string `yaml:"appid"`
	Token   string `yaml:"token"`
	Cluster string `yaml:"cluster"`
	Voice   string `yaml:"voice"`
}

// Configured requires all four credentials; a partial set counts as absent.
func (c TTSConfig) Configured() bool {
	return c.Token != "" && c.AppID != "" && c.Cluster != "" && c.Voice != ""
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type ImageConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"`
	DirectLimit int64 `yaml:"direct_limit"`
	MaxWidth    int   `yaml:"max_width"`
	JPEGQuality int   `yaml:"jpeg_quality"`
}
