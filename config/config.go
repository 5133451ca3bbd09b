package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// SysConfig system level config
type SysConfig struct {
	Appid     string `yaml:"appid" json:"appid"`
	Location  string `yaml:"location" json:"location"`
	Workdir   string `yaml:"workdir" json:"workdir"`
	ApiListen string `yaml:"api_listen" json:"api_listen"`
	Debug     bool   `yaml:"debug" json:"debug"`
}

// DBConfig local store backend config. Type is "sqlite" for the embedded
// offline store or "postgres" when a shared server database is wanted.
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// GatewayConfig resource cache gateway config. Revision names the deployed
// cache generation pair; ShellManifest lists the application shell assets
// cached up front.
type GatewayConfig struct {
	Listen        string   `yaml:"listen" json:"listen"`
	Origin        string   `yaml:"origin" json:"origin"`
	Revision      string   `yaml:"revision" json:"revision"`
	ShellManifest []string `yaml:"shell_manifest" json:"shell_manifest"`
	ShellDocument string   `yaml:"shell_document" json:"shell_document"`
}

// SyncConfig remote replay endpoint and connectivity probe cadence.
type SyncConfig struct {
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	ProbeInterval int    `yaml:"probe_interval" json:"probe_interval"`
}

type AuthConfig struct {
	IdentityURL string `yaml:"identity_url" json:"identity_url"`
	JwtSecret   string `yaml:"jwt_secret" json:"jwt_secret"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
	Gateway  GatewayConfig `yaml:"gateway" json:"gateway"`
	Sync     SyncConfig    `yaml:"sync" json:"sync"`
	Auth     AuthConfig    `yaml:"auth" json:"auth"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:     "caisse",
		Location:  "Africa/Tunis",
		Workdir:   "/var/caisse",
		ApiListen: ":1815",
		Debug:     true,
	},
	Database: DBConfig{
		Type:     "sqlite",
		Name:     "caisse.db",
		MaxConn:  10,
		IdleConn: 2,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/caisse/caisse.log",
	},
	Gateway: GatewayConfig{
		Listen:   ":1816",
		Origin:   "http://127.0.0.1:8080",
		Revision: "v1",
		ShellManifest: []string{
			"/",
			"/index.html",
			"/manifest.json",
			"/assets/js/app.js",
			"/assets/js/auth.js",
			"/assets/js/db.js",
		},
		ShellDocument: "/index.html",
	},
	Sync: SyncConfig{
		Endpoint:      "http://127.0.0.1:8080/api/sync",
		ProbeInterval: 30,
	},
	Auth: AuthConfig{
		IdentityURL: "http://127.0.0.1:8080/api/identity",
		JwtSecret:   "9b6d3a2e8f4c",
	},
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue == "true" || evalue == "1" || evalue == "on"
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToInt(evalue)
	}
}

// LoadConfig loads YAML config from cfile when present, otherwise returns
// defaults. Environment variables override file values.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			fcfg := new(AppConfig)
			if err := yaml.Unmarshal(data, fcfg); err == nil {
				cfg = fcfg
			}
		}
	}

	setEnvValue("CAISSE_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("CAISSE_SYSTEM_API_LISTEN", &cfg.System.ApiListen)
	setEnvBoolValue("CAISSE_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvValue("CAISSE_DB_TYPE", &cfg.Database.Type)
	setEnvValue("CAISSE_DB_HOST", &cfg.Database.Host)
	setEnvValue("CAISSE_DB_NAME", &cfg.Database.Name)
	setEnvValue("CAISSE_DB_USER", &cfg.Database.User)
	setEnvValue("CAISSE_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("CAISSE_DB_PORT", &cfg.Database.Port)
	setEnvValue("CAISSE_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("CAISSE_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("CAISSE_GATEWAY_LISTEN", &cfg.Gateway.Listen)
	setEnvValue("CAISSE_GATEWAY_ORIGIN", &cfg.Gateway.Origin)
	setEnvValue("CAISSE_GATEWAY_REVISION", &cfg.Gateway.Revision)
	setEnvValue("CAISSE_SYNC_ENDPOINT", &cfg.Sync.Endpoint)
	setEnvIntValue("CAISSE_SYNC_PROBE_INTERVAL", &cfg.Sync.ProbeInterval)
	setEnvValue("CAISSE_AUTH_IDENTITY_URL", &cfg.Auth.IdentityURL)
	setEnvValue("CAISSE_AUTH_JWT_SECRET", &cfg.Auth.JwtSecret)

	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = filepath.Join(cfg.System.Workdir, "caisse.log")
	}
	return cfg
}
