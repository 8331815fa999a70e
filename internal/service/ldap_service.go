package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/cenkalti/backoff/v5"
	ldapgo "github.com/go-ldap/ldap/v3"
)

type LdapServiceConfig struct {
	Address      string
	BindDN       string
	BindPassword string
	BaseDN       string
	Insecure     bool
	SearchFilter string
	AuthCert     string
	AuthKey      string
	Timeout      time.Duration
}

type LdapService struct {
	config LdapServiceConfig
	conn   *ldapgo.Conn
	mutex  sync.RWMutex
	cert   *tls.Certificate
}

func NewLdapService(config LdapServiceConfig) *LdapService {
	return &LdapService{
		config: config,
	}
}

func (ldap *LdapService) Init() error {
	// Check whether authentication with client certificate is possible
	if ldap.config.AuthCert != "" && ldap.config.AuthKey != "" {
		cert, err := tls.LoadX509KeyPair(ldap.config.AuthCert, ldap.config.AuthKey)
		if err != nil {
			return fmt.Errorf("failed to initialize LDAP with mTLS authentication: %w", err)
		}
		ldap.cert = &cert
		tlog.App.Info().Msg("Using LDAP with mTLS authentication")
	}

	_, err := ldap.connect()
	if err != nil {
		return fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	go func() {
		for range time.Tick(time.Duration(5) * time.Minute) {
			err := ldap.heartbeat()
			if err != nil {
				tlog.App.Error().Err(err).Msg("LDAP connection heartbeat failed")
				if reconnectErr := ldap.reconnect(); reconnectErr != nil {
					tlog.App.Error().Err(reconnectErr).Msg("Failed to reconnect to LDAP server")
					continue
				}
				tlog.App.Info().Msg("Successfully reconnected to LDAP server")
			}
		}
	}()

	return nil
}

func (ldap *LdapService) connect() (*ldapgo.Conn, error) {
	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	var conn *ldapgo.Conn
	var err error

	tlsConfig := &tls.Config{
		InsecureSkipVerify: ldap.config.Insecure,
		MinVersion:         tls.VersionTLS12,
	}

	if ldap.cert != nil {
		tlsConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{*ldap.cert},
		}
	}

	conn, err = ldapgo.DialURL(ldap.config.Address,
		ldapgo.DialWithTLSConfig(tlsConfig),
		ldapgo.DialWithDialer(&net.Dialer{Timeout: ldap.config.Timeout}),
	)
	if err != nil {
		return nil, err
	}

	if ldap.config.Timeout > 0 {
		conn.SetTimeout(ldap.config.Timeout)
	}

	ldap.conn = conn

	err = ldap.BindService(false)
	if err != nil {
		return nil, err
	}
	return ldap.conn, nil
}

func (ldap *LdapService) GetUserDN(username string) (string, error) {
	// Escape the username to prevent LDAP injection
	escapedUsername := ldapgo.EscapeFilter(username)
	filter := fmt.Sprintf(ldap.config.SearchFilter, escapedUsername)

	searchRequest := ldapgo.NewSearchRequest(
		ldap.config.BaseDN,
		ldapgo.ScopeWholeSubtree, ldapgo.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{"dn"},
		nil,
	)

	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	searchResult, err := ldap.conn.Search(searchRequest)
	if err != nil {
		return "", err
	}

	if len(searchResult.Entries) != 1 {
		return "", fmt.Errorf("expected exactly one entry for user %s, found %d", username, len(searchResult.Entries))
	}

	userDN := searchResult.Entries[0].DN
	return userDN, nil
}

func (ldap *LdapService) BindService(rebind bool) error {
	// Locks must not be used for initial binding attempt
	if rebind {
		ldap.mutex.Lock()
		defer ldap.mutex.Unlock()
	}

	if ldap.cert != nil {
		return ldap.conn.ExternalBind()
	}
	return ldap.conn.Bind(ldap.config.BindDN, ldap.config.BindPassword)
}

func (ldap *LdapService) Bind(userDN string, password string) error {
	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()
	return ldap.conn.Bind(userDN, password)
}

func (ldap *LdapService) heartbeat() error {
	tlog.App.Debug().Msg("Performing LDAP connection heartbeat")

	searchRequest := ldapgo.NewSearchRequest(
		"",
		ldapgo.ScopeBaseObject, ldapgo.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)",
		[]string{},
		nil,
	)

	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()
	_, err := ldap.conn.Search(searchRequest)
	return err
}

func (ldap *LdapService) reconnect() error {
	tlog.App.Info().Msg("Reconnecting to LDAP server")

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.RandomizationFactor = 0.1
	exp.Multiplier = 1.5
	exp.Reset()

	operation := func() (*ldapgo.Conn, error) {
		ldap.conn.Close()
		conn, err := ldap.connect()
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	_, err := backoff.Retry(context.Background(), operation, backoff.WithBackOff(exp), backoff.WithMaxTries(3))

	if err != nil {
		return err
	}

	return nil
}
