package config

import "time"

// Defaults mirror the limits the browser client enforces so both ends agree.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8090,
		},
		Log: LogConfig{
			Level: "info",
		},
		Web: WebConfig{
			StaticDir: "./web",
		},
		Storage: StorageConfig{
			Driver:    "memory",
			Namespace: "visionlex_",
		},
		Vision: VisionConfig{
			ModelName: "moonshot-v1-8k-vision-preview",
			BaseURL:   "https://api.moonshot.cn/v1",
			Timeout:   30 * time.Second,
		},
		TTS: TTSConfig{
			BaseURL: "https://openspeech.bytedance.com/api/v1/tts",
		},
		History: HistoryConfig{
			Limit: 100,
		},
		Image: ImageConfig{
			MaxFileSize: 10 * 1024 * 1024,
			DirectLimit: 2 * 1024 * 1024,
			MaxWidth:    1920,
			JPEGQuality: 80,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.IP == "" {
		c.Server.IP = def.Server.IP
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Web.StaticDir == "" {
		c.Web.StaticDir = def.Web.StaticDir
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = def.Storage.Namespace
	}
	if c.Vision.ModelName == "" {
		c.Vision.ModelName = def.Vision.ModelName
	}
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = def.Vision.BaseURL
	}
	if c.Vision.Timeout <= 0 {
		c.Vision.Timeout = def.Vision.Timeout
	}
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = def.TTS.BaseURL
	}
	if c.History.Limit <= 0 {
		c.History.Limit = def.History.Limit
	}
	if c.Image.MaxFileSize <= 0 {
		c.Image.MaxFileSize = def.Image.MaxFileSize
	}
	if c.Image.DirectLimit <= 0 {
		c.Image.DirectLimit = def.Image.DirectLimit
	}
	if c.Image.MaxWidth <= 0 {
		c.Image.MaxWidth = def.Image.MaxWidth
	}
	if c.Image.JPEGQuality <= 0 {
		c.Image.JPEGQuality = def.Image.JPEGQuality
	}
}
