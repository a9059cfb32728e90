package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appname  string `yaml:"appname" json:"appname"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Secret    string `yaml:"secret" json:"secret"`
	JwtExpire int    `yaml:"jwt_expire" json:"jwt_expire"`
}

// DBConfig selects the backend: "postgres" or "local". The local backend
// keeps everything in process and persists to a bbolt file under Workdir.
type DBConfig struct {
	Type    string `yaml:"type" json:"type"`
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
	Name    string `yaml:"name" json:"name"`
	User    string `yaml:"user" json:"user"`
	Passwd  string `yaml:"passwd" json:"passwd"`
	MaxConn int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int   `yaml:"idle_conn" json:"idle_conn"`
	Debug   bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type NotifyConfig struct {
	MailEnable bool   `yaml:"mail_enable" json:"mail_enable"`
	SmtpHost   string `yaml:"smtp_host" json:"smtp_host"`
	SmtpPort   int    `yaml:"smtp_port" json:"smtp_port"`
	SmtpUser   string `yaml:"smtp_user" json:"smtp_user"`
	SmtpPasswd string `yaml:"smtp_passwd" json:"smtp_passwd"`
	MailFrom   string `yaml:"mail_from" json:"mail_from"`
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

type BackupConfig struct {
	Enable   bool   `yaml:"enable" json:"enable"`
	SftpHost string `yaml:"sftp_host" json:"sftp_host"`
	SftpPort int    `yaml:"sftp_port" json:"sftp_port"`
	SftpUser string `yaml:"sftp_user" json:"sftp_user"`
	SftpPasswd string `yaml:"sftp_passwd" json:"sftp_passwd"`
	RemoteDir  string `yaml:"remote_dir" json:"remote_dir"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system" json:"system"`
	Web      WebConfig    `yaml:"web" json:"web"`
	Database DBConfig     `yaml:"database" json:"database"`
	Logger   LogConfig    `yaml:"logger" json:"logger"`
	Notify   NotifyConfig `yaml:"notify" json:"notify"`
	Backup   BackupConfig `yaml:"backup" json:"backup"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetBackupDir() string {
	return path.Join(c.System.Workdir, "backup")
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(path.Join(c.System.Workdir, "logs"), 0755)
	_ = os.MkdirAll(path.Join(c.System.Workdir, "data"), 0755)
	_ = os.MkdirAll(path.Join(c.System.Workdir, "backup"), 0755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appname:  "glosspoint",
		Location: "Europe/Warsaw",
		Workdir:  "/var/glosspoint",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-glosspoint-0cc5-secret",
		JwtExpire: 120,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "glosspoint",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/glosspoint/glosspoint.log",
	},
	Notify: NotifyConfig{
		SmtpPort: 587,
	},
	Backup: BackupConfig{
		SftpPort: 22,
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v == "true" || v == "1" || v == "on")
	}
}

func setEnvIntValue(name string, f func(v int)) {
	setEnvValue(name, func(v string) {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			f(i)
		}
	})
}

// LoadConfig reads the yaml file when it exists and then applies
// GLOSSPOINT_* environment overrides on top.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			cfg = new(AppConfig)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		}
	}

	setEnvValue("GLOSSPOINT_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvBoolValue("GLOSSPOINT_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })

	setEnvValue("GLOSSPOINT_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvIntValue("GLOSSPOINT_WEB_PORT", func(v int) { cfg.Web.Port = v })
	setEnvValue("GLOSSPOINT_WEB_SECRET", func(v string) { cfg.Web.Secret = v })

	setEnvValue("GLOSSPOINT_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("GLOSSPOINT_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvIntValue("GLOSSPOINT_DB_PORT", func(v int) { cfg.Database.Port = v })
	setEnvValue("GLOSSPOINT_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("GLOSSPOINT_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("GLOSSPOINT_DB_PWD", func(v string) { cfg.Database.Passwd = v })

	setEnvValue("GLOSSPOINT_SMTP_HOST", func(v string) { cfg.Notify.SmtpHost = v })
	setEnvValue("GLOSSPOINT_SMTP_USER", func(v string) { cfg.Notify.SmtpUser = v })
	setEnvValue("GLOSSPOINT_SMTP_PWD", func(v string) { cfg.Notify.SmtpPasswd = v })

	return cfg
}
