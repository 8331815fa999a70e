package repository

type AuthorizationCode struct {
	CodeHash    string
	ClientID    string
	RedirectURI string
	Subject     string
	Scope       string
	IssuedAt    int64
	ExpiresAt   int64
	Used        bool
}

type Client struct {
	ClientID       string
	SecretHash     string
	Name           string
	RedirectURIs   string
	GrantTypes     string
	Scopes         string
	Public         bool
	SecretOptional bool
	CreatedAt      int64
	UpdatedAt      int64
}

type RefreshToken struct {
	TokenHash  string
	ClientID   string
	Subject    string
	Scope      string
	IssuedAt   int64
	ExpiresAt  int64
	LastUsedAt int64
	Revoked    bool
}

type RevokedToken struct {
	Jti       string
	ClientID  string
	ExpiresAt int64
}

type Session struct {
	UUID      string
	Username  string
	ExpiresAt int64
}
