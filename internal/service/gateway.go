package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

// Gateway performs login, registration and logout against the backend
// selected by the caller. Every failure it returns is a *model.AuthError.
type Gateway struct {
	identity   model.IdentityProvider
	profiles   model.ProfileStore
	accounts   model.AccountLoader
	snapshot   model.Snapshot
	events     model.EventPublisher
	validate   *validator.Validate
	bcryptCost int
	logger     *logger.Logger
}

func NewGateway(
	identity model.IdentityProvider,
	profiles model.ProfileStore,
	accounts model.AccountLoader,
	snapshot model.Snapshot,
	events model.EventPublisher,
	bcryptCost int,
	logger *logger.Logger,
) *Gateway {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Gateway{
		identity:   identity,
		profiles:   profiles,
		accounts:   accounts,
		snapshot:   snapshot,
		events:     events,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// normalize maps backend errors onto the credential error taxonomy.
func normalize(err error) *model.AuthError {
	var authErr *model.AuthError
	switch {
	case errors.As(err, &authErr):
		return authErr
	case errors.Is(err, model.ErrInvalidCredentials):
		return model.NewAuthError(model.ReasonInvalidCredentials, err)
	case errors.Is(err, model.ErrNotConfirmed):
		return model.NewAuthError(model.ReasonNotConfirmed, err)
	case errors.Is(err, model.ErrDuplicate):
		return model.NewAuthError(model.ReasonDuplicateUser, err)
	case errors.Is(err, model.ErrUnreachable), errors.Is(err, context.DeadlineExceeded):
		return model.NewAuthError(model.ReasonUnreachable, err)
	default:
		return model.NewAuthError(model.ReasonUnknown, err)
	}
}

func (g *Gateway) Login(ctx context.Context, mode model.BackendMode, email, password string) (model.User, model.Session, error) {
	if mode == model.BackendLocalFallback {
		user, err := g.loginLocal(ctx, email, password)
		return user, model.Session{}, err
	}

	g.logger.Debug("Gateway: remote login", "email", email)

	session, err := g.identity.SignIn(ctx, email, password)
	if err != nil {
		g.logger.Info("Gateway: sign in failed", "email", email, "error", err.Error())
		return model.User{}, model.Session{}, normalize(err)
	}

	user, err := g.LoadUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			g.logger.Error("Gateway: identity has no profile", "user_id", session.UserID)
			if err := g.identity.SignOut(ctx, session); err != nil {
				g.logger.Warn("Gateway: failed to revoke session of profileless identity",
					"user_id", session.UserID,
					"error", err.Error())
			}
			return model.User{}, model.Session{}, model.NewAuthError(model.ReasonProfileMissing, err)
		}
		return model.User{}, model.Session{}, normalize(err)
	}

	g.mirror(ctx, user, password, session)

	g.logger.Info("Gateway: user logged in", "user_id", user.ID)
	return user, session, nil
}

func (g *Gateway) loginLocal(ctx context.Context, email, password string) (model.User, error) {
	g.logger.Debug("Gateway: local login", "email", email)

	stored, err := g.snapshot.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.NewAuthError(model.ReasonInvalidCredentials, nil)
	}
	if err != nil {
		return model.User{}, model.NewAuthError(model.ReasonUnknown, err)
	}

	if stored.Credential == "" ||
		bcrypt.CompareHashAndPassword([]byte(stored.Credential), []byte(password)) != nil {
		return model.User{}, model.NewAuthError(model.ReasonInvalidCredentials, nil)
	}

	user := stored.User
	if err := model.CheckDisjoint(user); err != nil {
		return model.User{}, model.NewAuthError(model.ReasonInconsistent, err)
	}
	if err := g.snapshot.SetCurrentUser(ctx, user); err != nil {
		g.logger.Warn("Gateway: failed to set current user", "user_id", user.ID, "error", err.Error())
	}

	g.logger.Info("Gateway: user logged in from local snapshot", "user_id", user.ID)
	return user, nil
}

// Register creates an identity and its profile. Registration needs the remote store.
// The returned session is empty when the identity must be confirmed first.
func (g *Gateway) Register(ctx context.Context, mode model.BackendMode, data model.RegisterData) (model.User, model.Session, error) {
	if err := g.validate.Struct(data); err != nil {
		return model.User{}, model.Session{}, model.NewAuthError(model.ReasonInvalidInput, err)
	}
	role, err := model.ParseRole(string(data.Role))
	if err != nil {
		return model.User{}, model.Session{}, model.NewAuthError(model.ReasonInvalidInput, err)
	}
	if mode == model.BackendLocalFallback {
		return model.User{}, model.Session{}, model.NewAuthError(model.ReasonUnreachable, ErrRemoteRequired)
	}

	email := normalizeEmail(data.Email)
	g.logger.Debug("Gateway: registering user", "email", email)

	exists, err := g.identity.ExistsByEmail(ctx, email)
	if err != nil {
		return model.User{}, model.Session{}, normalize(err)
	}
	if exists {
		g.logger.Info("Gateway: email already registered", "email", email)
		return model.User{}, model.Session{}, model.NewAuthError(model.ReasonDuplicateUser, nil)
	}

	identity, session, err := g.identity.SignUp(ctx, email, data.Password)
	if err != nil {
		return model.User{}, model.Session{}, normalize(err)
	}

	profile := data.Profile()
	profile.Email = email
	row, err := g.profiles.Create(ctx, model.ProfileRow{
		ID:      identity.ID,
		Role:    role,
		Profile: profile,
	})
	if err != nil {
		g.logger.Error("Gateway: profile insert failed after identity creation",
			"user_id", identity.ID,
			"error", err.Error())
		if delErr := g.identity.DeleteIdentity(ctx, identity.ID); delErr != nil {
			g.logger.Error("Gateway: failed to delete orphaned identity",
				"user_id", identity.ID,
				"error", delErr.Error())
		}
		return model.User{}, model.Session{}, model.NewAuthError(model.ReasonInconsistent, err)
	}

	user, err := model.NewUser(row, nil)
	if err != nil {
		return model.User{}, model.Session{}, model.NewAuthError(model.ReasonInconsistent, err)
	}

	if !session.IsZero() {
		g.mirror(ctx, user, data.Password, session)
	}
	g.publish(ctx, model.Event{Type: model.EventUserRegistered, UserID: user.ID})

	g.logger.Info("Gateway: user registered", "user_id", user.ID, "confirmed", !session.IsZero())
	return user, session, nil
}

// Logout revokes the remote session best-effort and clears the current user
// and session from the snapshot. The snapshot user table is kept.
func (g *Gateway) Logout(ctx context.Context, mode model.BackendMode, session model.Session) error {
	if mode == model.BackendRemote && !session.IsZero() {
		if err := g.identity.SignOut(ctx, session); err != nil {
			g.logger.Warn("Gateway: failed to revoke remote session", "error", err.Error())
		}
	}

	var errs []error
	if err := g.snapshot.ClearCurrentUser(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear current user: %w", err))
	}
	if err := g.snapshot.ClearSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear session: %w", err))
	}
	return errors.Join(errs...)
}

// Resume validates a stored session and loads its user with one composite read.
func (g *Gateway) Resume(ctx context.Context, session model.Session) (model.User, model.Session, error) {
	resumed, err := g.identity.Resume(ctx, session)
	if err != nil {
		return model.User{}, model.Session{}, fmt.Errorf("failed to resume session: %w", err)
	}
	user, err := g.LoadUser(ctx, resumed.UserID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	return user, resumed, nil
}

// LoadUser reads the profile and enrollment rows of userID and assembles the user.
func (g *Gateway) LoadUser(ctx context.Context, userID string) (model.User, error) {
	row, enrollments, err := g.accounts.LoadAccount(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load account: %w", err)
	}
	user, err := model.NewUser(row, enrollments)
	if err != nil {
		return model.User{}, model.NewAuthError(model.ReasonInconsistent, err)
	}
	if err := model.CheckDisjoint(user); err != nil {
		return model.User{}, model.NewAuthError(model.ReasonInconsistent, err)
	}
	return user, nil
}

// mirror writes a successful remote login to the snapshot. Failures are logged only.
func (g *Gateway) mirror(ctx context.Context, user model.User, password string, session model.Session) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.bcryptCost)
	if err != nil {
		g.logger.Warn("Gateway: failed to hash local credential", "user_id", user.ID, "error", err.Error())
		return
	}
	if err := g.snapshot.PutUser(ctx, model.LocalUser{User: user, Credential: string(hash)}); err != nil {
		g.logger.Warn("Gateway: failed to mirror user", "user_id", user.ID, "error", err.Error())
	}
	if err := g.snapshot.SetCurrentUser(ctx, user); err != nil {
		g.logger.Warn("Gateway: failed to mirror current user", "user_id", user.ID, "error", err.Error())
	}
	if err := g.snapshot.SetSession(ctx, session); err != nil {
		g.logger.Warn("Gateway: failed to mirror session", "user_id", user.ID, "error", err.Error())
	}
}

func (g *Gateway) publish(ctx context.Context, event model.Event) {
	if g.events == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	if err := g.events.Publish(ctx, event); err != nil {
		g.logger.Warn("Gateway: failed to publish event", "type", string(event.Type), "error", err.Error())
	}
}
