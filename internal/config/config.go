package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		// IPs o CIDRs de proxies cuyos X-Forwarded-For / X-Real-IP se aceptan.
		// Vacío => siempre se usa la IP del peer.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Crowd struct {
		ApplicationName     string `yaml:"application_name"`
		ApplicationPassword string `yaml:"application_password"`
		ServiceURL          string `yaml:"service_url"`
		ServiceURI          string `yaml:"service_uri"`
		// Segundos, >= 1.
		// Segundos de connect timeout; nil => 10.
		CurlTimeout *int `yaml:"curl_timeout"`
		// nil => default; 0 => un solo intento.
		ConnectionRetries *int `yaml:"connection_retries"`
		// Segundos entre refrescos del principal; nil => 600, 0 => en cada request.
		UserRefreshTime *int                `yaml:"user_refresh_time"`
		RolesToGroups   map[string][]string `yaml:"roles_to_groups"`
	} `yaml:"crowd"`

	SSO struct {
		CookieName   string `yaml:"cookie_name"`
		CookieDomain string `yaml:"cookie_domain"`
		Secure       bool   `yaml:"secure"`
		SameSite     string `yaml:"samesite"`
	} `yaml:"sso"`

	RememberMe struct {
		Signature        string `yaml:"signature"`
		Name             string `yaml:"name"`
		Lifetime         int    `yaml:"lifetime"` // segundos
		Path             string `yaml:"path"`
		Domain           string `yaml:"domain"`
		Secure           bool   `yaml:"secure"`
		HTTPOnly         *bool  `yaml:"httponly"`
		AlwaysRememberMe bool   `yaml:"always_remember_me"`
		Parameter        string `yaml:"remember_me_parameter"`
	} `yaml:"remember_me"`

	Login struct {
		UsernameParameter string `yaml:"username_parameter"`
		PasswordParameter string `yaml:"password_parameter"`
		PostOnly          *bool  `yaml:"post_only"`
	} `yaml:"login"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`

	Directory struct {
		// Rol local requerido para los endpoints /v1/directory.
		AdminRole string `yaml:"admin_role"`
	} `yaml:"directory"`
}

// Load lee el YAML (si path no es vacío), aplica defaults y overrides por env
// y valida. Todos los errores de validación se reportan juntos.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// Overrides por env antes de defaults: un env vacío no pisa nada
	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// Crowd
	if c.Crowd.ServiceURI == "" {
		c.Crowd.ServiceURI = "/crowd/rest/usermanagement/1/"
	}
	if c.Crowd.CurlTimeout == nil {
		t := 10
		c.Crowd.CurlTimeout = &t
	}
	if c.Crowd.ConnectionRetries == nil {
		r := 2
		c.Crowd.ConnectionRetries = &r
	}
	if c.Crowd.UserRefreshTime == nil {
		rt := 600
		c.Crowd.UserRefreshTime = &rt
	}

	// SSO
	if c.SSO.CookieName == "" {
		c.SSO.CookieName = "crowd.token_key"
	}
	if c.SSO.SameSite == "" {
		c.SSO.SameSite = "Lax"
	}

	// Remember-me
	if c.RememberMe.Name == "" {
		c.RememberMe.Name = "REMEMBERME"
	}
	if c.RememberMe.Lifetime == 0 {
		c.RememberMe.Lifetime = 1209600 // 14 días
	}
	if c.RememberMe.Path == "" {
		c.RememberMe.Path = "/"
	}
	if c.RememberMe.HTTPOnly == nil {
		t := true
		c.RememberMe.HTTPOnly = &t
	}
	if c.RememberMe.Parameter == "" {
		c.RememberMe.Parameter = "_remember_me"
	}

	// Login form
	if c.Login.UsernameParameter == "" {
		c.Login.UsernameParameter = "_username"
	}
	if c.Login.PasswordParameter == "" {
		c.Login.PasswordParameter = "_password"
	}
	if c.Login.PostOnly == nil {
		t := true
		c.Login.PostOnly = &t
	}

	// Host session
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sid"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "12h"
	}

	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "crowdauth"
	}

	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}

	if c.Directory.AdminRole == "" {
		c.Directory.AdminRole = "ROLE_ADMIN"
	}
}

// Validate agrega todos los problemas en un *multierror.Error.
func (c *Config) Validate() error {
	var errs *multierror.Error
	req := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s is required", name))
		}
	}

	req(c.Crowd.ApplicationName, "crowd.application_name")
	req(c.Crowd.ApplicationPassword, "crowd.application_password")
	req(c.Crowd.ServiceURL, "crowd.service_url")
	req(c.SSO.CookieDomain, "sso.cookie_domain")
	req(c.RememberMe.Signature, "remember_me.signature")

	if c.Crowd.CurlTimeout != nil && *c.Crowd.CurlTimeout < 1 {
		errs = multierror.Append(errs, fmt.Errorf("crowd.curl_timeout must be >= 1 (got %d)", *c.Crowd.CurlTimeout))
	}
	if c.Crowd.ConnectionRetries != nil && *c.Crowd.ConnectionRetries < 0 {
		errs = multierror.Append(errs, fmt.Errorf("crowd.connection_retries must be >= 0 (got %d)", *c.Crowd.ConnectionRetries))
	}
	if c.Crowd.UserRefreshTime != nil && *c.Crowd.UserRefreshTime < 0 {
		errs = multierror.Append(errs, fmt.Errorf("crowd.user_refresh_time must be >= 0 (got %d)", *c.Crowd.UserRefreshTime))
	}
	if len(c.Crowd.RolesToGroups) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("crowd.roles_to_groups must define at least one role"))
	}
	if c.RememberMe.Lifetime < 0 {
		errs = multierror.Append(errs, fmt.Errorf("remember_me.lifetime must be >= 0 (got %d)", c.RememberMe.Lifetime))
	}

	for name, v := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"session.ttl":             c.Session.TTL,
		"rate.login.window":       c.Rate.Login.Window,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			errs = multierror.Append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p))
		}
	}

	switch strings.ToLower(c.Cache.Kind) {
	case "", "memory", "redis":
	default:
		errs = multierror.Append(errs, fmt.Errorf("cache.kind must be memory or redis (got %q)", c.Cache.Kind))
	}

	return errs.ErrorOrNil()
}

// ---- Accessors tipados ----

func (c *Config) ConnectTimeout() time.Duration {
	if c.Crowd.CurlTimeout == nil {
		return 10 * time.Second
	}
	return time.Duration(*c.Crowd.CurlTimeout) * time.Second
}

func (c *Config) Retries() int {
	if c.Crowd.ConnectionRetries == nil {
		return 2
	}
	return *c.Crowd.ConnectionRetries
}

func (c *Config) RefreshInterval() time.Duration {
	if c.Crowd.UserRefreshTime == nil {
		return 600 * time.Second
	}
	return time.Duration(*c.Crowd.UserRefreshTime) * time.Second
}

func (c *Config) RememberMeLifetime() time.Duration {
	return time.Duration(c.RememberMe.Lifetime) * time.Second
}

func (c *Config) SessionTTL() time.Duration     { return mustDur(c.Session.TTL) }
func (c *Config) LoginRateWindow() time.Duration { return mustDur(c.Rate.Login.Window) }
func (c *Config) ShutdownTimeout() time.Duration { return mustDur(c.Server.ShutdownTimeout) }

// mustDur: los strings ya fueron validados en Validate.
func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// parseRoleMap: "ROLE_USER=jira-users,testers;ROLE_ADMIN=admins"
func parseRoleMap(s string) map[string][]string {
	out := map[string][]string{}
	for _, entry := range strings.Split(s, ";") {
		role, groups, ok := strings.Cut(entry, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			continue
		}
		var gs []string
		for _, g := range strings.Split(groups, ",") {
			if g = strings.TrimSpace(g); g != "" {
				gs = append(gs, g)
			}
		}
		out[role] = gs
	}
	return out
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// CROWD
	if v, ok := getEnvStr("CROWD_APPLICATION_NAME"); ok {
		c.Crowd.ApplicationName = v
	}
	if v, ok := getEnvStr("CROWD_APPLICATION_PASSWORD"); ok {
		c.Crowd.ApplicationPassword = v
	}
	if v, ok := getEnvStr("CROWD_SERVICE_URL"); ok {
		c.Crowd.ServiceURL = v
	}
	if v, ok := getEnvStr("CROWD_SERVICE_URI"); ok {
		c.Crowd.ServiceURI = v
	}
	if v, ok := getEnvInt("CROWD_CURL_TIMEOUT"); ok {
		c.Crowd.CurlTimeout = &v
	}
	if v, ok := getEnvInt("CROWD_CONNECTION_RETRIES"); ok {
		c.Crowd.ConnectionRetries = &v
	}
	if v, ok := getEnvInt("CROWD_USER_REFRESH_TIME"); ok {
		c.Crowd.UserRefreshTime = &v
	}
	if v, ok := getEnvStr("CROWD_ROLES_TO_GROUPS"); ok {
		c.Crowd.RolesToGroups = parseRoleMap(v)
	}

	// SSO
	if v, ok := getEnvStr("SSO_COOKIE_NAME"); ok {
		c.SSO.CookieName = v
	}
	if v, ok := getEnvStr("SSO_COOKIE_DOMAIN"); ok {
		c.SSO.CookieDomain = v
	}
	if v, ok := getEnvBool("SSO_COOKIE_SECURE"); ok {
		c.SSO.Secure = v
	}
	if v, ok := getEnvStr("SSO_COOKIE_SAMESITE"); ok {
		c.SSO.SameSite = v
	}

	// REMEMBER ME
	if v, ok := getEnvStr("REMEMBER_ME_SIGNATURE"); ok {
		c.RememberMe.Signature = v
	}
	if v, ok := getEnvStr("REMEMBER_ME_NAME"); ok {
		c.RememberMe.Name = v
	}
	if v, ok := getEnvInt("REMEMBER_ME_LIFETIME"); ok {
		c.RememberMe.Lifetime = v
	}
	if v, ok := getEnvStr("REMEMBER_ME_PATH"); ok {
		c.RememberMe.Path = v
	}
	if v, ok := getEnvStr("REMEMBER_ME_DOMAIN"); ok {
		c.RememberMe.Domain = v
	}
	if v, ok := getEnvBool("REMEMBER_ME_SECURE"); ok {
		c.RememberMe.Secure = v
	}
	if v, ok := getEnvBool("REMEMBER_ME_HTTPONLY"); ok {
		c.RememberMe.HTTPOnly = &v
	}
	if v, ok := getEnvBool("REMEMBER_ME_ALWAYS"); ok {
		c.RememberMe.AlwaysRememberMe = v
	}
	if v, ok := getEnvStr("REMEMBER_ME_PARAMETER"); ok {
		c.RememberMe.Parameter = v
	}

	// LOGIN
	if v, ok := getEnvStr("LOGIN_USERNAME_PARAMETER"); ok {
		c.Login.UsernameParameter = v
	}
	if v, ok := getEnvStr("LOGIN_PASSWORD_PARAMETER"); ok {
		c.Login.PasswordParameter = v
	}
	if v, ok := getEnvBool("LOGIN_POST_ONLY"); ok {
		c.Login.PostOnly = &v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_SAMESITE"); ok {
		c.Session.SameSite = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}

	// DIRECTORY
	if v, ok := getEnvStr("DIRECTORY_ADMIN_ROLE"); ok {
		c.Directory.AdminRole = v
	}
}
