package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	OrgChart     UpstreamConfig     `json:"org_chart"`
	People       UpstreamConfig     `json:"people"`
	LineOrg      UpstreamConfig     `json:"line_org"`
	SMTP         SMTPConfig         `json:"smtp"`
	Reports      ReportsConfig      `json:"reports"`
	Security     SecurityConfig     `json:"security"`
	ServiceActor ServiceActorConfig `json:"service_actor"`
	Logging      LoggingConfig      `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// UpstreamConfig configures one upstream service dependency.
type UpstreamConfig struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

// SMTPConfig configures outgoing notification mail.
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// ReportsConfig configures the weekly summary reports.
type ReportsConfig struct {
	OutputDir string `json:"output_dir"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// ServiceActorConfig identifies the application account that completes
// provisioning workflow steps.
type ServiceActorConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "resources",
			SSLMode: "disable",
		},
		Reports: ReportsConfig{
			OutputDir: "reports",
		},
		ServiceActor: ServiceActorConfig{
			Name: "Resources service",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if url := os.Getenv("ORG_CHART_BASE_URL"); url != "" {
		config.OrgChart.BaseURL = url
	}
	if token := os.Getenv("ORG_CHART_TOKEN"); token != "" {
		config.OrgChart.Token = token
	}
	if url := os.Getenv("PEOPLE_BASE_URL"); url != "" {
		config.People.BaseURL = url
	}
	if token := os.Getenv("PEOPLE_TOKEN"); token != "" {
		config.People.Token = token
	}
	if url := os.Getenv("LINE_ORG_BASE_URL"); url != "" {
		config.LineOrg.BaseURL = url
	}
	if token := os.Getenv("LINE_ORG_TOKEN"); token != "" {
		config.LineOrg.Token = token
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if id := os.Getenv("SERVICE_ACTOR_ID"); id != "" {
		config.ServiceActor.ID = id
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		config.SMTP.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.SMTP.Port = p
		}
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		config.SMTP.From = from
	}
	if dir := os.Getenv("REPORTS_OUTPUT_DIR"); dir != "" {
		config.Reports.OutputDir = dir
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
