// Package dependencies resolves the shared collaborators handed to command builders.
package dependencies

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/auditdesk/internal/admin"
	"github.com/temirov/auditdesk/internal/apiclient"
	"github.com/temirov/auditdesk/internal/guard"
	"github.com/temirov/auditdesk/internal/session"
	"github.com/temirov/auditdesk/internal/ui"
	"github.com/temirov/auditdesk/internal/workflow"
)

const (
	// RouteAnnotationKey marks the route a command opens; the root command guards it.
	RouteAnnotationKey                = "auditdesk.route"
	providerMissingMessageConstant    = "command dependencies not configured"
	sessionMissingMessageConstant     = "session not configured"
	notSignedInMessageConstant        = "not signed in; run the login command first"
	auditClientMissingMessageConstant = "audit client not configured"
	adminClientMissingMessageConstant = "admin client not configured"
)

var (
	// ErrProviderNotConfigured indicates a command was built without a dependency provider.
	ErrProviderNotConfigured = errors.New(providerMissingMessageConstant)
	// ErrSessionNotConfigured indicates the dependency set lacks a session.
	ErrSessionNotConfigured = errors.New(sessionMissingMessageConstant)
	// ErrNotSignedIn indicates an operation needs an authenticated user.
	ErrNotSignedIn = errors.New(notSignedInMessageConstant)
	// ErrAuditClientNotConfigured indicates the dependency set lacks an audit client.
	ErrAuditClientNotConfigured = errors.New(auditClientMissingMessageConstant)
	// ErrAdminClientNotConfigured indicates the dependency set lacks an admin client.
	ErrAdminClientNotConfigured = errors.New(adminClientMissingMessageConstant)
)

// Session is the account state the commands read and modify.
type Session interface {
	Login(executionContext context.Context, identifier string, password string) (apiclient.User, error)
	Register(executionContext context.Context, request session.RegistrationRequest) (apiclient.User, error)
	Logout() error
	Current() *apiclient.User
	IsViewingAsUser() bool
	ToggleViewAsUser() (bool, error)
	EffectiveIdentity() *guard.Identity
}

// Prompter asks the user for confirmations and free-form answers.
type Prompter interface {
	Confirm(prompt string) (bool, error)
	Ask(prompt string) (string, error)
}

// Set bundles the collaborators shared by the subcommands.
type Set struct {
	Logger      *zap.Logger
	Session     Session
	AuditClient workflow.AuditClient
	AdminClient admin.Client
	Workflow    workflow.Configuration
	Progress    workflow.ProgressIndicator
	Prompter    Prompter
	Now         func() time.Time
}

// Provider produces the dependency set once configuration has been loaded.
type Provider func() (Set, error)

// Resolve invokes the provider and fills optional collaborators with defaults.
func Resolve(provider Provider) (Set, error) {
	if provider == nil {
		return Set{}, ErrProviderNotConfigured
	}
	set, providerError := provider()
	if providerError != nil {
		return Set{}, providerError
	}
	set.Logger = ResolveLogger(set.Logger)
	if set.Now == nil {
		set.Now = time.Now
	}
	return set, nil
}

// ResolveLogger returns the provided logger or a no-op logger.
func ResolveLogger(existing *zap.Logger) *zap.Logger {
	if existing != nil {
		return existing
	}
	return zap.NewNop()
}

// ResolvePrompter returns the provided prompter or one reading from the command streams.
func ResolvePrompter(existing Prompter, input io.Reader, output io.Writer) Prompter {
	if existing != nil {
		return existing
	}
	return ui.NewIOConfirmationPrompter(input, output)
}

// ResolveProgress returns the provided indicator or a console indicator writing to output.
func ResolveProgress(existing workflow.ProgressIndicator, output io.Writer) workflow.ProgressIndicator {
	if existing != nil {
		return existing
	}
	return ui.NewConsoleProgressIndicator(output)
}

// NewWorkflow builds an audit workflow from the set.
func (set Set) NewWorkflow(progressOutput io.Writer) (*workflow.Workflow, error) {
	if set.AuditClient == nil {
		return nil, ErrAuditClientNotConfigured
	}
	return workflow.New(workflow.Dependencies{
		Client:   set.AuditClient,
		Logger:   ResolveLogger(set.Logger),
		Progress: ResolveProgress(set.Progress, progressOutput),
	}, set.Workflow)
}

// NewAdminService builds the user and invitation service from the set.
func (set Set) NewAdminService() (*admin.Service, error) {
	if set.AdminClient == nil {
		return nil, ErrAdminClientNotConfigured
	}
	return admin.NewService(admin.Dependencies{
		Client: set.AdminClient,
		Logger: ResolveLogger(set.Logger),
		Now:    set.Now,
	})
}

// RequireUser returns the signed-in user or ErrNotSignedIn.
func (set Set) RequireUser() (apiclient.User, error) {
	if set.Session == nil {
		return apiclient.User{}, ErrSessionNotConfigured
	}
	user := set.Session.Current()
	if user == nil {
		return apiclient.User{}, ErrNotSignedIn
	}
	return *user, nil
}

// AnnotateRoute records the route a command opens.
func AnnotateRoute(command *cobra.Command, route string) {
	if command == nil {
		return
	}
	if command.Annotations == nil {
		command.Annotations = map[string]string{}
	}
	command.Annotations[RouteAnnotationKey] = route
}

// RouteOf returns the route of the command or its nearest annotated parent; an empty string means unguarded.
func RouteOf(command *cobra.Command) string {
	for current := command; current != nil; current = current.Parent() {
		if route, exists := current.Annotations[RouteAnnotationKey]; exists {
			return route
		}
	}
	return ""
}
