package bootstrap

import (
	"time"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/repository"
	"github.com/steveiliop56/tinyoauth/internal/service"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"
)

type Services struct {
	authService   *service.AuthService
	clientService *service.ClientService
	codeService   *service.CodeService
	grantService  *service.GrantService
	ldapService   *service.LdapService
	tokenService  *service.TokenService
}

func (app *BootstrapApp) initServices(queries *repository.Queries) (Services, error) {
	services := Services{}

	if app.config.Ldap.Address != "" {
		ldapService := service.NewLdapService(service.LdapServiceConfig{
			Address:      app.config.Ldap.Address,
			BindDN:       app.config.Ldap.BindDN,
			BindPassword: app.config.Ldap.BindPassword,
			BaseDN:       app.config.Ldap.BaseDN,
			Insecure:     app.config.Ldap.Insecure,
			SearchFilter: app.config.Ldap.SearchFilter,
			AuthCert:     app.config.Ldap.AuthCert,
			AuthKey:      app.config.Ldap.AuthKey,
			Timeout:      time.Duration(app.config.Auth.StoreTimeout) * time.Millisecond,
		})

		err := ldapService.Init()

		if err == nil {
			services.ldapService = ldapService
		} else {
			tlog.App.Warn().Err(err).Msg("Failed to initialize LDAP service, continuing without it")
		}
	}

	clientService := service.NewClientService(service.ClientServiceConfig{
		Clients: app.config.OAuth.Clients,
	}, queries)

	err := clientService.Init()

	if err != nil {
		return Services{}, err
	}

	services.clientService = clientService

	authService := service.NewAuthService(service.AuthServiceConfig{
		Users:             app.context.users,
		SessionExpiry:     app.config.Auth.SessionExpiry,
		SecureCookie:      app.config.Auth.SecureCookie,
		LoginTimeout:      app.config.Auth.LoginTimeout,
		LoginMaxRetries:   app.config.Auth.LoginMaxRetries,
		SessionCookieName: config.SessionCookieName,
	}, clientService, services.ldapService, queries)

	err = authService.Init()

	if err != nil {
		return Services{}, err
	}

	services.authService = authService

	codeService := service.NewCodeService(service.CodeServiceConfig{
		CodeExpiry: app.config.OAuth.CodeExpiry,
	}, queries)

	services.codeService = codeService

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		Issuer:              app.context.issuer,
		AccessTokenExpiry:   app.config.OAuth.AccessTokenExpiry,
		RefreshTokenExpiry:  app.config.OAuth.RefreshTokenExpiry,
		RotateRefreshTokens: app.config.OAuth.RotateRefreshTokens,
		PrivateKeyPath:      app.config.OAuth.PrivateKeyPath,
		PublicKeyPath:       app.config.OAuth.PublicKeyPath,
	}, app.db, queries)

	err = tokenService.Init()

	if err != nil {
		return Services{}, err
	}

	services.tokenService = tokenService

	services.grantService = service.NewGrantService(service.GrantServiceConfig{
		AnonymousPasswordGrant: app.config.OAuth.AnonymousPasswordGrant,
		StoreTimeout:           app.config.Auth.StoreTimeout,
	}, authService, codeService, tokenService)

	return services, nil
}
