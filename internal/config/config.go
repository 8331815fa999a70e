package config

// Version information, set at build time

var Version = "development"
var CommitHash = "development"
var BuildTimestamp = "0000-00-00T00:00:00Z"

// Cookie names

var SessionCookieName = "tinyoauth-session"

// Environment variable prefix

var DefaultNamePrefix = "TINYOAUTH_"

// Main app config

type Config struct {
	AppURL       string             `description:"The base URL where the server is hosted." yaml:"appUrl"`
	Title        string             `description:"The title shown on the login page." yaml:"title"`
	DatabasePath string             `description:"The path to the database file." yaml:"databasePath"`
	Server       ServerConfig       `description:"Server configuration." yaml:"server"`
	Auth         AuthConfig         `description:"Authentication configuration." yaml:"auth"`
	OAuth        OAuthConfig        `description:"OAuth authorization server configuration." yaml:"oauth"`
	Ldap         LdapConfig         `description:"LDAP configuration." yaml:"ldap"`
	RateLimit    RateLimitConfig    `description:"Token endpoint rate limiting." yaml:"rateLimit"`
	Log          LogConfig          `description:"Logging configuration." yaml:"log"`
	Experimental ExperimentalConfig `description:"Experimental features, use with caution." yaml:"experimental"`
}

type ServerConfig struct {
	Port           int      `description:"The port on which the server listens." yaml:"port"`
	Address        string   `description:"The address on which the server listens." yaml:"address"`
	SocketPath     string   `description:"The path to the Unix socket." yaml:"socketPath"`
	TrustedProxies []string `description:"Comma-separated list of trusted proxy addresses." yaml:"trustedProxies"`
	Metrics        bool     `description:"Expose Prometheus metrics on /metrics." yaml:"metrics"`
}

type AuthConfig struct {
	Users           []string `description:"Comma-separated list of users (username:hashed_password[:totp_secret])." yaml:"users"`
	UsersFile       string   `description:"Path to the users file." yaml:"usersFile"`
	SecureCookie    bool     `description:"Enable secure cookies." yaml:"secureCookie"`
	SessionExpiry   int      `description:"Login session expiry time in seconds." yaml:"sessionExpiry"`
	LoginTimeout    int      `description:"Login timeout in seconds." yaml:"loginTimeout"`
	LoginMaxRetries int      `description:"Maximum login retries before lockout." yaml:"loginMaxRetries"`
	StoreTimeout    int      `description:"Timeout in milliseconds for database and directory calls." yaml:"storeTimeout"`
}

type OAuthConfig struct {
	Issuer                 string                  `description:"Issuer of access tokens, defaults to the app URL." yaml:"issuer"`
	AccessTokenExpiry      int                     `description:"Access token lifetime in seconds." yaml:"accessTokenExpiry"`
	RefreshTokenExpiry     int                     `description:"Refresh token lifetime in seconds." yaml:"refreshTokenExpiry"`
	CodeExpiry             int                     `description:"Authorization code lifetime in seconds." yaml:"codeExpiry"`
	RotateRefreshTokens    bool                    `description:"Issue a new refresh token on every refresh and revoke the old one." yaml:"rotateRefreshTokens"`
	AnonymousPasswordGrant bool                    `description:"Allow password grant requests without client authentication." yaml:"anonymousPasswordGrant"`
	PrivateKeyPath         string                  `description:"Path to the RSA private key used to sign access tokens." yaml:"privateKeyPath"`
	PublicKeyPath          string                  `description:"Path to the RSA public key." yaml:"publicKeyPath"`
	Clients                map[string]ClientConfig `description:"OAuth clients." yaml:"clients"`
}

type ClientConfig struct {
	ClientID         string   `description:"Client ID." yaml:"clientId"`
	ClientSecret     string   `description:"Client secret." yaml:"clientSecret"`
	ClientSecretFile string   `description:"Path to the file containing the client secret." yaml:"clientSecretFile"`
	Name             string   `description:"Client display name." yaml:"name"`
	RedirectURIs     []string `description:"Allowed redirect URIs." yaml:"redirectUris"`
	GrantTypes       []string `description:"Allowed grant types." yaml:"grantTypes"`
	Scopes           []string `description:"Allowed scopes." yaml:"scopes"`
	Public           bool     `description:"Public client without a secret, identified by client ID alone." yaml:"public"`
	SecretOptional   bool     `description:"Accept the client ID alone on the authorization code, password and refresh token grants. The client credentials grant still needs the secret." yaml:"secretOptional"`
}

type LdapConfig struct {
	Address      string `description:"LDAP server address." yaml:"address"`
	BindDN       string `description:"Bind DN for LDAP authentication." yaml:"bindDn"`
	BindPassword string `description:"Bind password for LDAP authentication." yaml:"bindPassword"`
	BaseDN       string `description:"Base DN for LDAP searches." yaml:"baseDn"`
	Insecure     bool   `description:"Allow insecure LDAP connections." yaml:"insecure"`
	SearchFilter string `description:"LDAP search filter." yaml:"searchFilter"`
	AuthCert     string `description:"Certificate for mTLS authentication." yaml:"authCert"`
	AuthKey      string `description:"Certificate key for mTLS authentication." yaml:"authKey"`
}

type RateLimitConfig struct {
	Enabled           bool `description:"Enable per client IP rate limiting on the token endpoint." yaml:"enabled"`
	RequestsPerSecond int  `description:"Sustained requests per second per client IP." yaml:"requestsPerSecond"`
	Burst             int  `description:"Maximum burst per client IP." yaml:"burst"`
}

type LogConfig struct {
	Level   string     `description:"Log level (trace, debug, info, warn, error)." yaml:"level"`
	Json    bool       `description:"Enable JSON formatted logs." yaml:"json"`
	Streams LogStreams `description:"Configuration for specific log streams." yaml:"streams"`
}

type LogStreams struct {
	HTTP  LogStreamConfig `description:"HTTP request logging." yaml:"http"`
	App   LogStreamConfig `description:"Application logging." yaml:"app"`
	Audit LogStreamConfig `description:"Audit logging." yaml:"audit"`
}

type LogStreamConfig struct {
	Enabled bool   `description:"Enable this log stream." yaml:"enabled"`
	Level   string `description:"Log level for this stream, defaults to the global level." yaml:"level"`
}

type ExperimentalConfig struct {
	ConfigFile string `description:"Path to config file." yaml:"-"`
}

func NewDefaultConfiguration() *Config {
	return &Config{
		AppURL:       "http://localhost:3000",
		Title:        "Tinyoauth",
		DatabasePath: "./tinyoauth.db",
		Server: ServerConfig{
			Port:    3000,
			Address: "0.0.0.0",
		},
		Auth: AuthConfig{
			SessionExpiry:   3600,
			LoginTimeout:    300,
			LoginMaxRetries: 3,
			StoreTimeout:    5000,
		},
		OAuth: OAuthConfig{
			AccessTokenExpiry:      3600,
			RefreshTokenExpiry:     2592000,
			CodeExpiry:             600,
			RotateRefreshTokens:    true,
			AnonymousPasswordGrant: true,
			PrivateKeyPath:         "./tinyoauth_private.pem",
			PublicKeyPath:          "./tinyoauth_public.pem",
		},
		Ldap: LdapConfig{
			Insecure:     false,
			SearchFilter: "(uid=%s)",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Log: LogConfig{
			Level: "info",
			Json:  false,
			Streams: LogStreams{
				HTTP:  LogStreamConfig{Enabled: true},
				App:   LogStreamConfig{Enabled: true},
				Audit: LogStreamConfig{Enabled: false},
			},
		},
		Experimental: ExperimentalConfig{
			ConfigFile: "",
		},
	}
}

// OAuth grant types

const (
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
)

var SupportedGrantTypes = []string{
	GrantTypeClientCredentials,
	GrantTypeAuthorizationCode,
	GrantTypePassword,
	GrantTypeRefreshToken,
}

// User related stuff

type User struct {
	Username   string
	Password   string
	TotpSecret string
}

type UserSearch struct {
	Username string
	Type     string // local, ldap or unknown
}

type SessionCookie struct {
	UUID      string
	Username  string
	ExpiresAt int64
}
