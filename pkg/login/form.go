package login

import (
	"time"

	"github.com/gtklocker/ting/pkg/deferred"
	"github.com/gtklocker/ting/pkg/i18n"
	"github.com/rs/zerolog/log"
)

// FocusDelay lets the modal's show transition settle before the input
// grabs focus.
const FocusDelay = 300 * time.Millisecond

// FormState is the state of the username modal. Every method returns a new
// state and leaves the receiver untouched.
type FormState struct {
	Username   string
	Validation Result
	ErrorStr   string
	Visible    bool
	// Pending is set between a submission and the server's answer.
	Pending bool
}

// NewFormState starts with an empty, not yet submittable username and a
// hidden banner.
func NewFormState() FormState {
	return FormState{Validation: Validate("")}
}

// BannerVisible reports whether the error banner should be shown.
func (s FormState) BannerVisible() bool {
	return !s.Validation.IsValid() && s.ErrorStr != ""
}

// Show marks the modal as shown.
func (s FormState) Show() FormState {
	s.Visible = true
	return s
}

// OnUsernameChange stores the candidate and re-validates it.
func (s FormState) OnUsernameChange(text string, tr i18n.Translator) FormState {
	s.Username = text
	s.Pending = false
	return s.withResult(Validate(text), tr)
}

// OnSubmit returns the username to log in with. ok is false when the
// current state does not allow a submission.
func (s FormState) OnSubmit() (next FormState, username string, ok bool) {
	if !s.Validation.IsValid() || s.Pending {
		return s, "", false
	}
	s.Pending = true
	return s, s.Username, true
}

// OnLoginSuccess hides the modal.
func (s FormState) OnLoginSuccess() FormState {
	s.Pending = false
	s.Visible = false
	return s
}

// OnLoginError shows the banner for a server- or client-side error kind.
func (s FormState) OnLoginError(kind Result, tr i18n.Translator) FormState {
	s.Pending = false
	return s.withResult(kind, tr)
}

func (s FormState) withResult(r Result, tr i18n.Translator) FormState {
	s.Validation = r
	if r.IsValid() {
		s.ErrorStr = ""
		return s
	}
	s.ErrorStr = errorString(r, tr)
	return s
}

func errorString(r Result, tr i18n.Translator) string {
	if tr == nil {
		return string(r)
	}
	key := r.ErrorKey()
	if s := tr.T(key); s != key {
		return s
	}
	return tr.T(Unknown.ErrorKey())
}

// Focuser moves keyboard focus to the username input.
type Focuser interface {
	FocusInput()
}

// FocuserFunc adapts a function to Focuser.
type FocuserFunc func()

func (f FocuserFunc) FocusInput() { f() }

// Form binds FormState to its collaborators: the translator, the login
// intention callback and a deferred input focus.
type Form struct {
	state            FormState
	tr               i18n.Translator
	onLoginIntention func(username string)
	focuser          Focuser
	sched            *deferred.Scheduler
}

type FormOption func(*Form)

// WithFocuser sets what gets focused after mount.
func WithFocuser(f Focuser) FormOption {
	return func(fm *Form) { fm.focuser = f }
}

// WithScheduler overrides the scheduler, mostly for tests.
func WithScheduler(s *deferred.Scheduler) FormOption {
	return func(fm *Form) { fm.sched = s }
}

func NewForm(tr i18n.Translator, onLoginIntention func(username string), opts ...FormOption) *Form {
	f := &Form{
		state:            NewFormState(),
		tr:               tr,
		onLoginIntention: onLoginIntention,
	}
	for _, o := range opts {
		o(f)
	}
	if f.sched == nil {
		f.sched = deferred.NewScheduler()
	}
	return f
}

// State returns the current form state.
func (f *Form) State() FormState {
	return f.state
}

// Mount shows the modal and focuses the input after FocusDelay.
func (f *Form) Mount() {
	f.state = f.state.Show()
	if f.focuser != nil {
		f.sched.After(FocusDelay, f.focuser.FocusInput)
	}
}

// Teardown cancels the deferred focus if it has not fired yet.
func (f *Form) Teardown() {
	f.sched.Close()
}

func (f *Form) OnUsernameChange(text string) {
	f.state = f.state.OnUsernameChange(text, f.tr)
}

// Submit invokes the login intention when the username is valid. It
// reports whether a submission happened.
func (f *Form) Submit() bool {
	next, username, ok := f.state.OnSubmit()
	f.state = next
	if !ok {
		log.Debug().Str("component", "login").Str("validation", string(f.state.Validation)).Msg("submit ignored")
		return false
	}
	if f.onLoginIntention != nil {
		f.onLoginIntention(username)
	}
	return true
}

func (f *Form) OnLoginSuccess() {
	f.state = f.state.OnLoginSuccess()
}

func (f *Form) OnLoginError(kind Result) {
	log.Info().Str("component", "login").Str("kind", string(kind)).Msg("login rejected")
	f.state = f.state.OnLoginError(kind, f.tr)
}
