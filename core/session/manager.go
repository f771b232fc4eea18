package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/user"
	"github.com/madrasa-app/madrasa/storage"
)

// Result is the caller-facing outcome of a session operation. Message is
// suitable for direct display; failures never surface as panics or errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Credentials is the login input. Device and ClientAddr are recorded on the
// session verbatim.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	RememberMe bool   `json:"remember_me"`
	Device     string `json:"-"`
	ClientAddr string `json:"-"`
}

// ProfileUpdate lists the profile fields that may be merged into the current
// account. Nil fields are left untouched.
type ProfileUpdate struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Department   *string `json:"department"`
	Class        *string `json:"class"`
	ProfileImage *string `json:"profile_image"`
}

// Manager holds at most one current session. A new login replaces the
// previous one; expiry detected at any check drops back to the anonymous
// state and clears the persisted slots.
type Manager struct {
	users   *user.Service
	backend storage.Backend
	log     core.Logger

	nowFunc func() time.Time // mockable

	mu   sync.Mutex
	usr  *user.User
	sess *Session

	refreshTimer  *time.Timer
	heartbeat     *time.Ticker
	stopHeartbeat chan struct{}
	closed        bool
}

// NewManager restores any persisted session from the backend and, when it is
// still valid, arms the auto-refresh and heartbeat timers. Callers must
// Close the manager to release them.
func NewManager(users *user.Service, backend storage.Backend, log core.Logger) *Manager {
	if log == nil {
		log = core.NopLogger{}
	}
	m := &Manager{
		users:   users,
		backend: backend,
		log:     log,
		nowFunc: time.Now,
	}
	m.mu.Lock()
	m.restoreLocked()
	m.mu.Unlock()
	return m
}

// Login validates credentials against the account source and, on success,
// opens a fresh session that replaces any current one. Failure messages stay
// generic: one for the username/role stage, one for the password stage.
func (m *Manager) Login(creds Credentials) Result {
	uname := core.CleanString(creds.Username, true /* lower */)
	if uname == "" || creds.Password == "" {
		return Result{Success: false, Message: "username and password are required"}
	}

	usr, err := m.users.GetByUsernameAndRole(uname, creds.Role)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			m.log.Error("looking up account", err)
		}
		return Result{Success: false, Message: "invalid username or role"}
	}
	if err := usr.CheckPassword(creds.Password); err != nil {
		return Result{Success: false, Message: "invalid password"}
	}
	if !usr.IsActive {
		return Result{Success: false, Message: "account is deactivated"}
	}

	token, err := NewToken()
	if err != nil {
		m.log.Error("generating session token", err)
		return Result{Success: false, Message: "could not start a session"}
	}

	now := m.nowFunc()
	ttl := core.Conf.Session.ExpirationDelta
	if creds.RememberMe {
		ttl = core.Conf.Session.RememberMeDelta
	}
	sess := Session{
		ID:           uuid.New().String(),
		UserID:       usr.ID,
		Token:        token,
		Device:       creds.Device,
		ClientAddr:   creds.ClientAddr,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastActivity: now,
	}

	if updated, err := m.users.SetLastLogin(usr, now); err != nil {
		m.log.Error("recording last login", err)
	} else {
		usr = updated
	}

	m.mu.Lock()
	m.usr = &usr
	m.sess = &sess
	m.persistLocked()
	m.scheduleLocked()
	m.mu.Unlock()

	return Result{Success: true, Message: "login successful"}
}

// Logout drops the current session unconditionally. It never fails from the
// caller's point of view; slot removal problems are only logged.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
}

// ChangePassword verifies the current password and replaces it, enforcing
// the configured minimum length on the new one.
func (m *Manager) ChangePassword(current, newPwd string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.liveSessionLocked() || m.usr == nil {
		return Result{Success: false, Message: "no active session"}
	}
	if len(newPwd) < core.Conf.PasswordMinLength {
		return Result{Success: false, Message: "password must be at least 6 characters"}
	}
	if err := m.usr.CheckPassword(current); err != nil {
		return Result{Success: false, Message: "current password is incorrect"}
	}

	usr := *m.usr
	if err := usr.SetPassword(newPwd); err != nil {
		m.log.Error("hashing password", err)
		return Result{Success: false, Message: "could not change password"}
	}
	usr.UpdatedAt = m.nowFunc().UTC()
	updated, err := m.users.Save(usr)
	if err != nil {
		m.log.Error("saving password change", err)
		return Result{Success: false, Message: "could not change password"}
	}
	m.usr = &updated
	m.persistLocked()
	return Result{Success: true, Message: "password changed"}
}

// UpdateProfile shallow-merges the provided fields into the current account.
func (m *Manager) UpdateProfile(patch ProfileUpdate) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.liveSessionLocked() || m.usr == nil {
		return Result{Success: false, Message: "no active session"}
	}

	usr := *m.usr
	if patch.Name != nil {
		usr.Name = *patch.Name
	}
	if patch.Email != nil {
		usr.Email = *patch.Email
	}
	if patch.Phone != nil {
		usr.Phone = *patch.Phone
	}
	if patch.Department != nil {
		usr.Department = *patch.Department
	}
	if patch.Class != nil {
		usr.Class = *patch.Class
	}
	if patch.ProfileImage != nil {
		usr.ProfileImage = *patch.ProfileImage
	}
	usr.UpdatedAt = m.nowFunc().UTC()

	updated, err := m.users.Save(usr)
	if err != nil {
		m.log.Error("saving profile update", err)
		return Result{Success: false, Message: "could not update profile"}
	}
	m.usr = &updated
	m.persistLocked()
	return Result{Success: true, Message: "profile updated"}
}

// RefreshToken rotates the opaque token and pushes expiry out by the default
// lifetime, keeping the session identity (id, user, creation time) intact.
// An expired or absent session cannot be refreshed; an internal fault logs
// the session out and reports false.
func (m *Manager) RefreshToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.liveSessionLocked() || m.usr == nil {
		return false
	}
	token, err := NewToken()
	if err != nil {
		m.log.Error("refreshing session token", err)
		m.clearLocked()
		return false
	}

	now := m.nowFunc()
	m.sess.Token = token
	m.sess.ExpiresAt = now.Add(core.Conf.Session.ExpirationDelta)
	m.sess.LastActivity = now
	m.persistLocked()
	m.scheduleLocked()
	return true
}

// CheckPermission reports whether the current account may perform the named
// action. Admins may perform everything; anonymous contexts nothing.
func (m *Manager) CheckPermission(perm string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.liveSessionLocked() || m.usr == nil {
		return false
	}
	return m.usr.HasPermission(perm)
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveSessionLocked() && m.usr != nil
}

func (m *Manager) CurrentUser() (user.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.liveSessionLocked() || m.usr == nil {
		return user.User{}, false
	}
	return *m.usr, true
}

func (m *Manager) CurrentSession() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.liveSessionLocked() {
		return Session{}, false
	}
	return *m.sess, true
}

func (m *Manager) SessionExpiry() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.liveSessionLocked() {
		return time.Time{}, false
	}
	return m.sess.ExpiresAt, true
}

// Close cancels the timers. Persisted state is left as-is so the session can
// be restored by the next manager.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancelTimersLocked()
	m.closed = true
	m.mu.Unlock()
}

// liveSessionLocked reports whether an unexpired session is current. A
// session found past its expiry is discarded on the spot: slots cleared,
// state back to anonymous.
func (m *Manager) liveSessionLocked() bool {
	if m.sess == nil {
		return false
	}
	if m.sess.Expired(m.nowFunc()) {
		m.log.Info("session expired; discarding")
		m.clearLocked()
		return false
	}
	return true
}

// restoreLocked reads the persisted slots; a valid unexpired session becomes
// current, anything else (absent, corrupt, expired, token mismatch) resets
// to the anonymous state.
func (m *Manager) restoreLocked() {
	var token string
	var usr user.User
	var sess Session
	if !m.readSlotLocked(TokenSlot, &token) ||
		!m.readSlotLocked(UserSlot, &usr) ||
		!m.readSlotLocked(SessionSlot, &sess) {
		return
	}
	if sess.Token != token {
		m.log.Warn("persisted token does not match session; discarding")
		m.clearLocked()
		return
	}
	if sess.Expired(m.nowFunc()) {
		m.log.Info("persisted session expired; discarding")
		m.clearLocked()
		return
	}
	m.usr = &usr
	m.sess = &sess
	m.scheduleLocked()
}

func (m *Manager) readSlotLocked(slot string, into interface{}) bool {
	raw, ok, err := m.backend.Get(slot)
	if err != nil {
		m.log.Error("reading slot "+slot, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, into); err != nil {
		m.log.Error("decoding slot "+slot, err)
		m.clearLocked()
		return false
	}
	return true
}

func (m *Manager) persistLocked() {
	if m.usr == nil || m.sess == nil {
		return
	}
	m.writeSlotLocked(TokenSlot, m.sess.Token)
	m.writeSlotLocked(UserSlot, m.usr)
	m.writeSlotLocked(SessionSlot, m.sess)
}

func (m *Manager) writeSlotLocked(slot string, val interface{}) {
	raw, err := json.Marshal(val)
	if err != nil {
		m.log.Error("encoding slot "+slot, err)
		return
	}
	if err := m.backend.Set(slot, raw); err != nil {
		m.log.Error("persisting slot "+slot, err)
	}
}

func (m *Manager) clearLocked() {
	m.cancelTimersLocked()
	for _, slot := range []string{TokenSlot, UserSlot, SessionSlot} {
		if err := m.backend.Remove(slot); err != nil {
			m.log.Error("clearing slot "+slot, err)
		}
	}
	m.usr = nil
	m.sess = nil
}

// scheduleLocked (re)arms both timers from the current session state:
// a one-shot refresh 10 minutes before expiry but no sooner than the
// configured minimum delay, and the recurring heartbeat.
func (m *Manager) scheduleLocked() {
	m.cancelTimersLocked()
	if m.sess == nil || m.closed {
		return
	}

	delay := m.sess.ExpiresAt.Sub(m.nowFunc()) - core.Conf.Session.RefreshLead
	if delay < core.Conf.Session.RefreshMinDelay {
		delay = core.Conf.Session.RefreshMinDelay
	}
	m.refreshTimer = time.AfterFunc(delay, func() { m.RefreshToken() })

	stop := make(chan struct{})
	hb := time.NewTicker(core.Conf.Session.HeartbeatInterval)
	m.stopHeartbeat = stop
	m.heartbeat = hb
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-hb.C:
				m.touch()
			}
		}
	}()
}

func (m *Manager) cancelTimersLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}
	if m.stopHeartbeat != nil {
		close(m.stopHeartbeat)
		m.stopHeartbeat = nil
	}
}

// touch records activity on the session while the app is open.
func (m *Manager) touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.liveSessionLocked() {
		return
	}
	m.sess.LastActivity = m.nowFunc()
	m.writeSlotLocked(SessionSlot, m.sess)
}
