package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/habittracker/internal/flagx"
	"github.com/dmitrijs2005/habittracker/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// either "90m" style strings or integer nanoseconds. Absent keys leave the
// current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RedisAddr                    *string         `json:"redis_addr"`
	JWTIssuer                    *string         `json:"jwt_issuer"`
	JWTAudience                  *string         `json:"jwt_audience"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	MaxLoginAttempts             *int            `json:"max_login_attempts"`
	LoginCooldownDuration        *timex.Duration `json:"login_cooldown_duration"`
	CORSAllowedOrigins           []string        `json:"cors_allowed_origins"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// No flag means nothing to load. An unreadable or invalid file panics, since
// the process cannot start with a configuration it did not understand.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.JWTIssuer, c.JWTIssuer)
	setString(&config.JWTAudience, c.JWTAudience)
	setString(&config.SecretKey, c.SecretKey)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.LoginCooldownDuration != nil {
		config.LoginCooldownDuration = c.LoginCooldownDuration.Duration
	}
	if c.MaxLoginAttempts != nil {
		config.MaxLoginAttempts = *c.MaxLoginAttempts
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
