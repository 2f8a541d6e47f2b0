package auth

import (
	"context"
	"errors"
	"time"
)

// LoginResult is a successful login
type LoginResult struct {
	Account   *Account
	Token     string
	ExpiresAt time.Time
}

// Auther runs the credential based flows: login, admin login and
// registration.
type Auther struct {
	provider     *AccountProvider
	register     *RegisterAccountHandler
	tokenService *TokenService
	useHashid    bool
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, hasher PasswordHasher, tokens *TokenService, opts Config) *Auther {
	return &Auther{
		provider:     NewAccountProvider(repo.Accounts(), hasher),
		register:     NewRegisterAccountHandler(repo, hasher),
		tokenService: tokens,
		useHashid:    opts.GetUseHashid(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	s.provider.WithLogger(s.logger)
	s.register.WithLogger(s.logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	s.register.WithActivitySink(s.activitySink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokenService
}

// Login verifies credentials and issues a session token
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.logger.Debug("Login verify credentials error", "error", err)
		s.emitLoginFailure(ctx, email, account, err)
		return nil, err
	}

	token, expiresAt, err := s.tokenService.IssueSession(account)
	if err != nil {
		s.logger.Error("Login failed to issue session token", "error", err)
		s.emitLoginFailure(ctx, email, account, err)
		return nil, err
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorFromAccount(account),
		UserID:    account.ID,
		IPAddress: ipFromContext(ctx),
	})

	return &LoginResult{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

// AdminLogin verifies credentials of an active admin and issues an admin
// token. Non admins get the same error as a wrong password.
func (s *Auther) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.emitLoginFailure(ctx, email, account, err)
		return nil, err
	}

	if !account.IsAdmin {
		s.emitLoginFailure(ctx, email, account, ErrForbidden)
		return nil, ErrMismatchedHashAndPassword
	}

	token, expiresAt, err := s.tokenService.IssueAdmin(account)
	if err != nil {
		s.logger.Error("AdminLogin failed to issue admin token", "error", err)
		return nil, err
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventAdminLogin,
		Actor:     ActorFromAccount(account),
		UserID:    account.ID,
		IPAddress: ipFromContext(ctx),
		Metadata:  map[string]any{"expires_at": expiresAt.UTC().Format(time.RFC3339)},
	})

	return &LoginResult{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

// Register creates a password account and logs it in
func (s *Auther) Register(ctx context.Context, msg RegisterAccountMessage) (*LoginResult, error) {
	msg.UseHashid = msg.UseHashid || s.useHashid

	account, err := s.register.Register(ctx, msg)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokenService.IssueSession(account)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Auther) emitLoginFailure(ctx context.Context, email string, account *Account, err error) {
	actor := ActorRef{Type: "unknown"}
	userID := ""
	if account != nil {
		actor = ActorFromAccount(account)
		userID = account.ID
	}

	reason := "invalid_credentials"
	if errors.Is(err, ErrDeactivated) {
		reason = "deactivated"
	} else if errors.Is(err, ErrForbidden) {
		reason = "not_admin"
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     actor,
		UserID:    userID,
		IPAddress: ipFromContext(ctx),
		Metadata: map[string]any{
			"identifier": email,
			"reason":     reason,
		},
	})
}
