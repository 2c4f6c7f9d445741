package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/altafino/mail-watcher/internal/mailauth"
	xoauth "github.com/altafino/mail-watcher/internal/oauth2"
	"github.com/altafino/mail-watcher/internal/store"
	"github.com/altafino/mail-watcher/internal/webhook"
	"github.com/altafino/mail-watcher/internal/worker"
)

// Step-level error codes reported under the "base" key.
const (
	errCommunication = "communication"
	errTenant        = "tenant"
	errToken         = "token"
	errWebhook       = "webhook"
	errCode          = "code"
	errInvalidMethod = "invalid_method"
)

// MailVerifier validates a credential against the mail server and enumerates
// its folders. Both are blocking network calls.
type MailVerifier interface {
	Verify(p mailauth.ConnParams) bool
	ListFolders(p mailauth.ConnParams) []string
}

// TokenAcquirer performs the app-only client-credentials grant.
type TokenAcquirer interface {
	AcquireToken(ctx context.Context, creds xoauth.AppCredentials) (string, error)
}

// ConsentExchanger completes the interactive authorization-code grant.
type ConsentExchanger interface {
	// Ready reports whether an HTTPS-reachable callback exists. The flow
	// refuses to enter the consent step otherwise.
	Ready() error
	Exchange(ctx context.Context, code string) (*webhook.TokenPair, error)
	Profile(ctx context.Context, accessToken string) (string, error)
}

// CapabilityChecker reports optional host capabilities.
type CapabilityChecker interface {
	HasFFmpeg() bool
}

// EntryStore persists validated records.
type EntryStore interface {
	Create(title string, data map[string]any) (*store.Entry, error)
	Update(id string, data map[string]any) error
	Get(id string) (*store.Entry, error)
}

// Deps are the collaborators a Wizard composes.
type Deps struct {
	Logger  *slog.Logger
	Pool    *worker.Pool
	Mail    MailVerifier
	Tokens  TokenAcquirer
	Consent ConsentExchanger
	Caps    CapabilityChecker
	Store   EntryStore

	// FileExists is replaceable in tests; defaults to an os.Stat check.
	FileExists func(path string) bool
}

// Wizard drives the account setup flow as a sequential request/response
// protocol: the host submits one step at a time and receives either the next
// step to render or the same step with field errors. Every blocking call is
// dispatched to the worker pool and awaited.
type Wizard struct {
	logger     *slog.Logger
	pool       *worker.Pool
	mail       MailVerifier
	tokens     TokenAcquirer
	consent    ConsentExchanger
	caps       CapabilityChecker
	store      EntryStore
	fileExists func(path string) bool
}

// New creates a wizard from its collaborators.
func New(d Deps) *Wizard {
	fileExists := d.FileExists
	if fileExists == nil {
		fileExists = func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		}
	}
	return &Wizard{
		logger:     d.Logger,
		pool:       d.Pool,
		mail:       d.Mail,
		tokens:     d.Tokens,
		consent:    d.Consent,
		caps:       d.Caps,
		store:      d.Store,
		fileExists: fileExists,
	}
}

// Begin returns the initial state for a flow. Reauth and options flows start
// from the existing entry's accumulated fields instead of an empty record.
func (w *Wizard) Begin(mode Mode, entryID string) (State, error) {
	st := State{
		Mode:   mode,
		Data:   make(map[string]any),
		Errors: make(map[string]string),
	}

	switch mode {
	case ModeCreate:
		st.Step = StepMethodChoice
	case ModeReauth, ModeOptions:
		entry, err := w.store.Get(entryID)
		if err != nil {
			return State{}, fmt.Errorf("failed to load entry for %s flow: %w", mode, err)
		}
		st.EntryID = entry.ID
		maps.Copy(st.Data, entry.Data)
		if mode == ModeReauth {
			st.Step = StepReauthConfirm
		} else {
			st.Step = StepOptionsInit
		}
	default:
		return State{}, fmt.Errorf("unknown wizard mode %q", mode)
	}

	return st, nil
}

// Submit applies one step submission and returns the next state. A step only
// advances when its validation produced zero errors; otherwise the same step
// re-renders with the submitted values preserved in Data.
func (w *Wizard) Submit(ctx context.Context, st State, input map[string]any) (State, error) {
	if st.Terminal() {
		return st, fmt.Errorf("flow already finished with outcome %q", st.Outcome)
	}

	st.Errors = make(map[string]string)

	switch st.Step {
	case StepMethodChoice:
		return w.stepMethodChoice(st, input)
	case StepManualCredentials, StepOptionsInit:
		return w.stepCredentials(ctx, st, input)
	case StepO365Credentials:
		return w.stepO365Credentials(ctx, st, input)
	case StepInteractiveConsent:
		return w.stepInteractiveConsent(ctx, st, input)
	case StepResourceSelection, StepOptionsResourceSelection:
		return w.stepResourceSelection(st, input)
	case StepCustomImagePath, StepOptionsCustomImagePath:
		return w.stepCustomImagePath(st, input)
	case StepReauthConfirm:
		// Confirmation re-enters the regular step graph.
		st.Step = StepMethodChoice
		return st, nil
	default:
		return st, fmt.Errorf("unknown step %q", st.Step)
	}
}

// Abort terminates the flow; any in-flight worker result is discarded when it
// eventually returns.
func (w *Wizard) Abort(st State) State {
	st.Outcome = OutcomeAborted
	return st
}

func (w *Wizard) stepMethodChoice(st State, input map[string]any) (State, error) {
	switch getString(input, KeyMethod) {
	case "manual":
		st.Data[KeyMethod] = MethodStandard
		st.Step = StepManualCredentials
	case "o365":
		st.Data[KeyMethod] = MethodO365
		st.Data[KeyHost] = OutlookHost
		st.Data[KeyPort] = DefaultPort
		st.Step = StepO365Credentials
	case "gmail":
		if err := w.consent.Ready(); err != nil {
			w.logger.Error("webhook not reachable, refusing interactive consent", "error", err)
			st.Errors["base"] = errWebhook
			return st, nil
		}
		st.Data[KeyMethod] = MethodGmail
		st.Data[KeyHost] = GmailHost
		st.Data[KeyPort] = DefaultPort
		st.Step = StepInteractiveConsent
	default:
		st.Errors[KeyMethod] = errInvalidMethod
	}
	return st, nil
}

// stepCredentials handles manual-credentials and the options-init step: both
// collect host/port/username/password and verify them against the server.
func (w *Wizard) stepCredentials(ctx context.Context, st State, input map[string]any) (State, error) {
	st.mergeInput(input)
	if st.Mode == ModeCreate && getString(st.Data, KeyMethod) == "" {
		st.Data[KeyMethod] = MethodStandard
	}

	ok, err := w.verify(ctx, st.Data)
	if err != nil {
		return st, err
	}
	if !ok {
		st.Errors["base"] = errCommunication
		return st, nil
	}

	return w.afterVerification(ctx, st)
}

func (w *Wizard) stepO365Credentials(ctx context.Context, st State, input map[string]any) (State, error) {
	st.mergeInput(input)

	creds := xoauth.AppCredentials{
		TenantID:     getString(st.Data, KeyTenantID),
		ClientID:     getString(st.Data, KeyClientID),
		ClientSecret: getString(st.Data, KeyClientSecret),
		Scopes:       []string{xoauth.O365Scope},
	}

	token, err := w.acquireToken(ctx, creds)
	if err != nil {
		var terr *xoauth.TokenError
		switch {
		case errors.Is(err, xoauth.ErrMissingTenantID):
			w.logger.Error("missing tenant id")
			st.Errors["base"] = errTenant
		case errors.As(err, &terr):
			w.logger.Error("problems obtaining oauth token")
			st.Errors["base"] = errToken
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return st, err
		default:
			w.logger.Error("token acquisition failed", "error", err)
			st.Errors["base"] = errToken
		}
		return st, nil
	}

	st.Data[KeyToken] = token

	ok, err := w.verify(ctx, st.Data)
	if err != nil {
		return st, err
	}
	if !ok {
		st.Errors["base"] = errCommunication
		return st, nil
	}

	return w.afterVerification(ctx, st)
}

func (w *Wizard) stepInteractiveConsent(ctx context.Context, st State, input map[string]any) (State, error) {
	code := getString(input, "code")
	if code == "" {
		st.Errors["base"] = errCode
		return st, nil
	}

	pair, err := w.exchange(ctx, code)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return st, err
		}
		w.logger.Error("authorization code exchange failed", "error", err)
		st.Errors["base"] = errToken
		return st, nil
	}

	email, err := w.profile(ctx, pair.AccessToken)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return st, err
		}
		w.logger.Error("failed to resolve account profile", "error", err)
		st.Errors["base"] = errToken
		return st, nil
	}

	st.Data[KeyUsername] = email
	st.Data[KeyToken] = pair.AccessToken

	ok, err := w.verify(ctx, st.Data)
	if err != nil {
		return st, err
	}
	if !ok {
		st.Errors["base"] = errCommunication
		return st, nil
	}

	return w.afterVerification(ctx, st)
}

func (w *Wizard) stepResourceSelection(st State, input map[string]any) (State, error) {
	st.mergeInput(input)

	// Media fields keep their defaults unless the form submitted them.
	if _, ok := st.Data[KeyDuration]; !ok {
		st.Data[KeyDuration] = DefaultDuration
	}
	if _, ok := st.Data[KeyAllowExternal]; !ok {
		st.Data[KeyAllowExternal] = false
	}

	st.Errors = w.validateOptions(st.Data)
	if len(st.Errors) > 0 {
		return st, nil
	}

	if getBool(st.Data, KeyCustomImg) {
		if st.Step == StepOptionsResourceSelection {
			st.Step = StepOptionsCustomImagePath
		} else {
			st.Step = StepCustomImagePath
		}
		return st, nil
	}

	return w.finish(st)
}

func (w *Wizard) stepCustomImagePath(st State, input map[string]any) (State, error) {
	st.mergeInput(input)
	st.Errors = w.validateOptions(st.Data)
	if len(st.Errors) > 0 {
		return st, nil
	}

	return w.finish(st)
}

// finish hands the validated record to the store. Creation makes a new
// entry; reauth and options merge into the existing one, which triggers a
// reload of the dependent subsystem as a separate, sequenced step.
func (w *Wizard) finish(st State) (State, error) {
	switch st.Mode {
	case ModeCreate:
		entry, err := w.store.Create(getString(st.Data, KeyHost), st.Data)
		if err != nil {
			return st, fmt.Errorf("failed to create entry: %w", err)
		}
		st.EntryID = entry.ID
		st.Outcome = OutcomeCreated
	case ModeReauth:
		if err := w.store.Update(st.EntryID, st.Data); err != nil {
			return st, fmt.Errorf("failed to update entry: %w", err)
		}
		st.Outcome = OutcomeReauthSuccessful
	case ModeOptions:
		if err := w.store.Update(st.EntryID, st.Data); err != nil {
			return st, fmt.Errorf("failed to update entry: %w", err)
		}
		st.Outcome = OutcomeUpdated
	}

	w.logger.Info("wizard flow finished", "mode", st.Mode, "outcome", st.Outcome, "entry_id", st.EntryID)
	return st, nil
}

// afterVerification routes a confirmed credential. Reauth updates the entry
// right away; the other flows discover the folder list for the selection
// form. Discovery never hard-fails; the worst case is the single default
// folder.
func (w *Wizard) afterVerification(ctx context.Context, st State) (State, error) {
	if st.Mode == ModeReauth {
		return w.finish(st)
	}

	folders, err := w.listFolders(ctx, st.Data)
	if err != nil {
		return st, err
	}
	st.Folders = folders

	if st.Step == StepOptionsInit {
		st.Step = StepOptionsResourceSelection
	} else {
		st.Step = StepResourceSelection
	}
	return st, nil
}

func (w *Wizard) connParams(data map[string]any) mailauth.ConnParams {
	timeout := getInt(data, KeyIMAPTimeout)
	if timeout == 0 {
		timeout = DefaultIMAPTimeout
	}

	p := mailauth.ConnParams{
		Host:     getString(data, KeyHost),
		Port:     getInt(data, KeyPort),
		Username: getString(data, KeyUsername),
		Timeout:  time.Duration(timeout) * time.Second,
	}

	if getString(data, KeyMethod) == MethodStandard {
		p.Password = getString(data, KeyPassword)
	} else {
		p.Token = getString(data, KeyToken)
	}
	return p
}

func (w *Wizard) verify(ctx context.Context, data map[string]any) (bool, error) {
	p := w.connParams(data)
	return worker.Await(ctx, worker.Submit(w.pool, func() bool {
		return w.mail.Verify(p)
	}))
}

func (w *Wizard) listFolders(ctx context.Context, data map[string]any) ([]string, error) {
	p := w.connParams(data)
	return worker.Await(ctx, worker.Submit(w.pool, func() []string {
		return w.mail.ListFolders(p)
	}))
}

type tokenResult struct {
	token string
	err   error
}

func (w *Wizard) acquireToken(ctx context.Context, creds xoauth.AppCredentials) (string, error) {
	res, err := worker.Await(ctx, worker.Submit(w.pool, func() tokenResult {
		token, err := w.tokens.AcquireToken(ctx, creds)
		return tokenResult{token: token, err: err}
	}))
	if err != nil {
		return "", err
	}
	return res.token, res.err
}

type exchangeResult struct {
	pair *webhook.TokenPair
	err  error
}

func (w *Wizard) exchange(ctx context.Context, code string) (*webhook.TokenPair, error) {
	res, err := worker.Await(ctx, worker.Submit(w.pool, func() exchangeResult {
		pair, err := w.consent.Exchange(ctx, code)
		return exchangeResult{pair: pair, err: err}
	}))
	if err != nil {
		return nil, err
	}
	return res.pair, res.err
}

type profileResult struct {
	email string
	err   error
}

func (w *Wizard) profile(ctx context.Context, accessToken string) (string, error) {
	res, err := worker.Await(ctx, worker.Submit(w.pool, func() profileResult {
		email, err := w.consent.Profile(ctx, accessToken)
		return profileResult{email: email, err: err}
	}))
	if err != nil {
		return "", err
	}
	return res.email, res.err
}
