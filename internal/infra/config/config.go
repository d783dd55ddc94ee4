package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath путь к файлу конфигурации, если не задан CONFIG_PATH
const DefaultPath = "configs/values.yaml"

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	TelegramBot struct {
		Token        string        `yaml:"token"`
		Username     string        `yaml:"username"` // имя бота для ссылок-приглашений
		Mode         string        `yaml:"mode"`     // polling или webhook
		WebhookURL   string        `yaml:"webhook_url"`
		ListenAddr   string        `yaml:"listen_addr"`
		PollInterval time.Duration `yaml:"poll_interval"`
		Debug        bool          `yaml:"debug"`
		EditRate     float64       `yaml:"edit_rate"` // правок сообщений в секунду на всех пользователей
		EditBurst    int           `yaml:"edit_burst"`
	} `yaml:"telegram_bot"`
	Database struct {
		Driver   string `yaml:"driver"` // postgres или sqlite
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"dbname"`
	} `yaml:"database"`
	Timer struct {
		TickInterval time.Duration `yaml:"tick_interval"`
	} `yaml:"timer"`
	Report struct {
		FontDir string `yaml:"font_dir"` // каталог со шрифтами DejaVu для PDF
	} `yaml:"report"`
	CatalogPath string `yaml:"catalog_path"`
}

// Addr адрес HTTP-сервера
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// PostgresDSN строка подключения к PostgreSQL. DSN из конфигурации имеет приоритет.
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	db := c.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", db.User, db.Password, db.Host, db.Port, db.Name)
}

// LoadConfig читает YAML-файл, затем применяет переменные окружения (включая .env)
func LoadConfig(filename string) (*Config, error) {
	// Загружаем переменные окружения из файла .env (если файл существует).
	_ = godotenv.Load()

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			fmt.Println("f.Close() failed ", err)
		}
	}(f)

	config := &Config{}
	if err := yaml.NewDecoder(f).Decode(config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Path путь к файлу конфигурации с учетом CONFIG_PATH
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.TelegramBot.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.TelegramBot.Username, "TELEGRAM_BOT_USERNAME")
	setString(&c.TelegramBot.Mode, "BOT_MODE")
	setString(&c.TelegramBot.WebhookURL, "WEBHOOK_URL")
	setString(&c.TelegramBot.ListenAddr, "LISTEN_ADDR")
	setString(&c.Server.Host, "SERVER_HOST")
	setString(&c.Server.Port, "SERVER_PORT")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.CatalogPath, "CATALOG_PATH")
	setString(&c.Report.FontDir, "REPORT_FONT_DIR")

	// Интервал лонгпуллинга в секундах
	if piStr := os.Getenv("POLL_INTERVAL"); piStr != "" {
		if pi, err := strconv.Atoi(piStr); err == nil {
			c.TelegramBot.PollInterval = time.Duration(pi) * time.Second
		}
	}

	if debugStr := os.Getenv("DEBUG"); debugStr != "" {
		c.TelegramBot.Debug = debugStr == "true" || debugStr == "1"
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.TelegramBot.Mode == "" {
		c.TelegramBot.Mode = "polling"
	}
	if c.TelegramBot.ListenAddr == "" {
		c.TelegramBot.ListenAddr = ":8443"
	}
	if c.TelegramBot.PollInterval <= 0 {
		c.TelegramBot.PollInterval = 10 * time.Second
	}
	if c.TelegramBot.EditRate <= 0 {
		// Telegram ограничивает бота примерно 30 сообщениями в секунду
		c.TelegramBot.EditRate = 25
	}
	if c.TelegramBot.EditBurst <= 0 {
		c.TelegramBot.EditBurst = 5
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Timer.TickInterval <= 0 {
		c.Timer.TickInterval = time.Second
	}
}

func (c *Config) validate() error {
	if c.TelegramBot.Token == "" {
		return fmt.Errorf("telegram bot token is not set (TELEGRAM_BOT_TOKEN)")
	}
	switch c.TelegramBot.Mode {
	case "polling":
	case "webhook":
		if c.TelegramBot.WebhookURL == "" {
			return fmt.Errorf("webhook mode requires WEBHOOK_URL")
		}
	default:
		return fmt.Errorf("unknown bot mode %q", c.TelegramBot.Mode)
	}
	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("sqlite driver requires database dsn (DB_DSN)")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}
