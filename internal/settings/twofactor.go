package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/mutation"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/validation"
)

// TwoFactorState is where the security panel is in the enrollment flow.
type TwoFactorState string

const (
	TwoFactorLoading TwoFactorState = "loading"
	TwoFactorOff     TwoFactorState = "off"
	TwoFactorSetup   TwoFactorState = "setup"
	TwoFactorOn      TwoFactorState = "on"
	TwoFactorDisable TwoFactorState = "disable"
)

// CodeLength is the number of digits in an emailed verification code.
const CodeLength = 6

var twoFactorStatusKey = query.Key{"auth", "2fa", "status"}

type codeForm struct {
	Code string `validate:"len=6,digits"`
}

type passwordForm struct {
	Password string `validate:"notblank"`
}

// TwoFactorPanel drives email-code two-factor enrollment:
//
//	loading -> off | on
//	off     -> setup   (Enable)
//	setup   -> on      (SubmitCode; a wrong code stays in setup)
//	on      -> disable (BeginDisable, local only)
//	disable -> off     (ConfirmDisable; a wrong password returns to on)
//
// Cancel backs out of setup or disable without a request.
type TwoFactorPanel struct {
	deps Deps

	mu     sync.Mutex
	state  TwoFactorState
	status domain.TwoFactorStatus
	code   string

	setup   *mutation.Executor[struct{}, struct{}]
	verify  *mutation.Executor[string, struct{}]
	disable *mutation.Executor[string, struct{}]
}

// NewTwoFactorPanel starts in the loading state.
func NewTwoFactorPanel(deps Deps) *TwoFactorPanel {
	deps = deps.normalize("settings.2fa")
	p := &TwoFactorPanel{deps: deps, state: TwoFactorLoading}
	p.setup = mutation.New(mutation.Spec[struct{}, struct{}]{
		Name: "Start two-factor setup",
		Do: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, deps.API.Post(ctx, apiclient.Path("auth", "2fa", "setup"), struct{}{}, nil, apiclient.WithCSRF())
		},
		Success: func(struct{}, struct{}) string { return "Verification code sent to your email" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.verify = mutation.New(mutation.Spec[string, struct{}]{
		Name: "Verify code",
		Do: func(ctx context.Context, code string) (struct{}, error) {
			return struct{}{}, deps.API.Post(ctx, apiclient.Path("auth", "2fa", "verify-setup"), map[string]string{"code": code}, nil, apiclient.WithCSRF())
		},
		Keys:    func(string, struct{}) []query.Key { return []query.Key{twoFactorStatusKey} },
		Success: func(string, struct{}) string { return "Two-factor authentication enabled" },
		Failure: "Invalid verification code",
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	p.disable = mutation.New(mutation.Spec[string, struct{}]{
		Name: "Disable two-factor authentication",
		Do: func(ctx context.Context, password string) (struct{}, error) {
			return struct{}{}, deps.API.Post(ctx, apiclient.Path("auth", "2fa", "disable"), map[string]string{"password": password}, nil, apiclient.WithCSRF())
		},
		Keys:    func(string, struct{}) []query.Key { return []query.Key{twoFactorStatusKey} },
		Success: func(string, struct{}) string { return "Two-factor authentication disabled" },
	}, deps.Cache, deps.Toasts, mutation.WithLogger(deps.Logger))
	return p
}

// State returns the current state.
func (p *TwoFactorPanel) State() TwoFactorState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status returns the last loaded status. Email is already masked.
func (p *TwoFactorPanel) Status() domain.TwoFactorStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Code returns the code typed so far.
func (p *TwoFactorPanel) Code() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

// Load fetches the status and leaves loading.
func (p *TwoFactorPanel) Load(ctx context.Context) error {
	res, err := query.Read(ctx, p.deps.Cache, twoFactorStatusKey,
		fetch[domain.TwoFactorStatus](p.deps.API, apiclient.Path("auth", "2fa", "status")))
	if err != nil {
		return mutation.Reject(p.deps.Toasts, fmt.Errorf("settings: load two-factor status: %w", err))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = res.Data
	p.state = TwoFactorOff
	if res.Data.Enabled {
		p.state = TwoFactorOn
	}
	return nil
}

func (p *TwoFactorPanel) require(want TwoFactorState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != want {
		return fmt.Errorf("%w: %s while %s", ErrInvalidState, want, p.state)
	}
	return nil
}

func (p *TwoFactorPanel) set(s TwoFactorState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Enable requests a verification code and enters setup.
func (p *TwoFactorPanel) Enable(ctx context.Context) error {
	if err := p.require(TwoFactorOff); err != nil {
		return err
	}
	if _, err := p.setup.Run(ctx, struct{}{}); err != nil {
		return err
	}
	p.mu.Lock()
	p.state = TwoFactorSetup
	p.code = ""
	p.mu.Unlock()
	return nil
}

// SanitizeCode keeps digits only, truncated to CodeLength.
func SanitizeCode(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == CodeLength {
				break
			}
		}
	}
	return b.String()
}

// SetCode stores the sanitized input and returns it.
func (p *TwoFactorPanel) SetCode(input string) string {
	code := SanitizeCode(input)
	p.mu.Lock()
	p.code = code
	p.mu.Unlock()
	return code
}

// SubmitCode verifies the typed code. A rejected code keeps the panel in setup.
func (p *TwoFactorPanel) SubmitCode(ctx context.Context) error {
	if err := p.require(TwoFactorSetup); err != nil {
		return err
	}
	code := p.Code()
	if err := validation.Struct(codeForm{Code: code}); err != nil {
		return mutation.Reject(p.deps.Toasts, validation.Errorf("Code", "Enter the %d-digit code from your email", CodeLength))
	}
	if _, err := p.verify.Run(ctx, code); err != nil {
		return err
	}
	p.mu.Lock()
	p.state = TwoFactorOn
	p.status.Enabled = true
	p.code = ""
	p.mu.Unlock()
	return nil
}

// BeginDisable asks for the password. No request is made.
func (p *TwoFactorPanel) BeginDisable() error {
	if err := p.require(TwoFactorOn); err != nil {
		return err
	}
	p.set(TwoFactorDisable)
	return nil
}

// ConfirmDisable turns 2FA off. A rejected password returns the panel to on.
func (p *TwoFactorPanel) ConfirmDisable(ctx context.Context, password string) error {
	if err := p.require(TwoFactorDisable); err != nil {
		return err
	}
	if err := validation.Struct(passwordForm{Password: password}); err != nil {
		return mutation.Reject(p.deps.Toasts, err)
	}
	if _, err := p.disable.Run(ctx, password); err != nil {
		p.set(TwoFactorOn)
		return err
	}
	p.mu.Lock()
	p.state = TwoFactorOff
	p.status.Enabled = false
	p.mu.Unlock()
	return nil
}

// Cancel leaves setup for off or disable for on.
func (p *TwoFactorPanel) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case TwoFactorSetup:
		p.state = TwoFactorOff
		p.code = ""
	case TwoFactorDisable:
		p.state = TwoFactorOn
	}
}

// IsPending reports whether a request is in flight.
func (p *TwoFactorPanel) IsPending() bool {
	return p.setup.IsPending() || p.verify.IsPending() || p.disable.IsPending()
}
