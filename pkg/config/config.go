package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Drivers de almacenamiento soportados.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App        AppConfig
	Storage    StorageConfig
	DB         DBConfig
	JWT        JWTConfig
	Session    SessionConfig
	CompanyAPI CompanyAPIConfig
	HTTP       HTTPConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// StorageConfig base de datos local y caché de sesión.
type StorageConfig struct {
	Driver        string // memory, sqlite, bolt, postgres
	Path          string // archivo para sqlite/bolt
	SchemaVersion int
	CachePath     string // archivo JSON de la caché local (vacío = en memoria)
	Seed          bool   // sembrar datos por defecto al abrir
}

// DBConfig configuración de PostgreSQL (solo para STORAGE_DRIVER=postgres).
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de los tokens que emite el directorio local.
type JWTConfig struct {
	Secret         string
	AccessMinutes  int
	RefreshMinutes int
	Issuer         string
}

// SessionConfig tiempos del ciclo de sesión de empresa.
type SessionConfig struct {
	RefreshInterval  time.Duration // cada cuánto corre el loop de renovación
	RefreshLead      time.Duration // ventana antes del vencimiento en la que se renueva
	LogoutTimeout    time.Duration // tope para la invalidación remota al cerrar sesión
	ConnectivityPoll time.Duration // sondeo de conectividad contra el API remoto (0 = sin sondeo)
}

// CompanyAPIConfig directorio de empresas. BaseURL vacío = directorio local en proceso.
type CompanyAPIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	ServeDirectory bool // exponer /api/companies con el directorio local
}

// Remote informa si se usa un directorio remoto.
func (c CompanyAPIConfig) Remote() bool { return c.BaseURL != "" }

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, STORAGE_DRIVER, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v)
}

// FromViper construye la configuración desde una instancia de Viper ya cargada.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "erp-offline"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getString(v, "STORAGE_DRIVER", DriverSQLite)),
			Path:          getString(v, "STORAGE_PATH", "data/erp.db"),
			SchemaVersion: getInt(v, "SCHEMA_VERSION", 0),
			CachePath:     getString(v, "CACHE_PATH", "data/local_storage.json"),
			Seed:          getBool(v, "STORAGE_SEED", true),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "erp_offline"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:         getString(v, "JWT_SECRET", ""),
			AccessMinutes:  getInt(v, "JWT_ACCESS_MINUTES", 60),
			RefreshMinutes: getInt(v, "JWT_REFRESH_MINUTES", 60*24*7),
			Issuer:         getString(v, "JWT_ISSUER", "erp-offline"),
		},
		Session: SessionConfig{
			RefreshInterval:  seconds(getInt(v, "SESSION_REFRESH_INTERVAL_SECONDS", 60)),
			RefreshLead:      seconds(getInt(v, "SESSION_REFRESH_LEAD_SECONDS", 300)),
			LogoutTimeout:    seconds(getInt(v, "SESSION_LOGOUT_TIMEOUT_SECONDS", 3)),
			ConnectivityPoll: seconds(getInt(v, "CONNECTIVITY_PROBE_SECONDS", 30)),
		},
		CompanyAPI: CompanyAPIConfig{
			BaseURL:        strings.TrimRight(getString(v, "COMPANY_API_URL", ""), "/"),
			Timeout:        seconds(getInt(v, "COMPANY_API_TIMEOUT_SECONDS", 10)),
			ServeDirectory: getBool(v, "DIRECTORY_SERVE", true),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "127.0.0.1"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverBolt, DriverPostgres:
	default:
		return fmt.Errorf("config: STORAGE_DRIVER %q no soportado", c.Storage.Driver)
	}
	if c.Storage.SchemaVersion < 0 {
		return fmt.Errorf("config: SCHEMA_VERSION no puede ser negativo")
	}
	if !c.CompanyAPI.Remote() && c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET es obligatorio con el directorio local")
	}
	if c.Session.RefreshInterval <= 0 {
		return fmt.Errorf("config: SESSION_REFRESH_INTERVAL_SECONDS debe ser positivo")
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
