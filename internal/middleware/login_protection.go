// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LoginProtectionConfig configures LoginProtection. Zero fields take the
// values from DefaultLoginProtectionConfig.
type LoginProtectionConfig struct {
	// IPRateLimit and IPBurst throttle auth POSTs per client IP.
	IPRateLimit float64
	IPBurst     int
	// MaxFailedAttempts within AttemptWindow lock the account.
	MaxFailedAttempts int
	AttemptWindow     time.Duration
	// LockoutDuration is the first lockout; each further one doubles, up to MaxLockout.
	LockoutDuration time.Duration
	MaxLockout      time.Duration
}

// DefaultLoginProtectionConfig mirrors the auth limits of the public API:
// five attempts per fifteen minutes.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		AttemptWindow:     15 * time.Minute,
		LockoutDuration:   15 * time.Minute,
		MaxLockout:        24 * time.Hour,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	def := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = def.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = def.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = def.AttemptWindow
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = def.LockoutDuration
	}
	if c.MaxLockout < c.LockoutDuration {
		c.MaxLockout = max(def.MaxLockout, c.LockoutDuration)
	}
	return c
}

// LockStatus is the lockout state of one account.
type LockStatus struct {
	Locked       bool
	RetryAfter   time.Duration
	AttemptsLeft int
}

// accountState counts failures for one account. strikes is the number of
// lockouts served so far and drives the doubling.
type accountState struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	strikes     int
}

// LoginProtection throttles the auth endpoints per client IP and locks an
// account after repeated failed logins.
type LoginProtection struct {
	cfg LoginProtectionConfig
	ips *limiterCache[string]
	now func() time.Time

	mu       sync.Mutex
	accounts map[string]*accountState

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoginProtection starts a LoginProtection with a background sweep of
// expired entries. Call Close to stop it.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		cfg:      cfg,
		ips:      newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		now:      time.Now,
		accounts: make(map[string]*accountState),
		stop:     make(chan struct{}),
	}
	go lp.sweepLoop(10 * time.Minute)
	return lp
}

// Close stops the background sweep.
func (lp *LoginProtection) Close() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

// accountKey normalizes an email so lockouts cannot be dodged by changing case.
func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AllowIP reports whether another auth request from ip fits the IP budget.
func (lp *LoginProtection) AllowIP(ip string) bool {
	return lp.ips.get(ip).Allow()
}

// Status returns the current lockout state of the account behind email.
func (lp *LoginProtection) Status(email string) LockStatus {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.statusLocked(lp.accounts[accountKey(email)], lp.now())
}

func (lp *LoginProtection) statusLocked(st *accountState, now time.Time) LockStatus {
	if st == nil {
		return LockStatus{AttemptsLeft: lp.cfg.MaxFailedAttempts}
	}
	if now.Before(st.lockedUntil) {
		return LockStatus{Locked: true, RetryAfter: st.lockedUntil.Sub(now)}
	}
	if now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
		return LockStatus{AttemptsLeft: lp.cfg.MaxFailedAttempts}
	}
	return LockStatus{AttemptsLeft: max(lp.cfg.MaxFailedAttempts-st.failures, 0)}
}

// Fail records a failed login for email and returns the resulting state.
// Reaching MaxFailedAttempts inside the window starts a lockout.
func (lp *LoginProtection) Fail(email string) LockStatus {
	key := accountKey(email)
	now := lp.now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	st := lp.accounts[key]
	if st == nil {
		st = &accountState{windowStart: now}
		lp.accounts[key] = st
	}
	if now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
		st.failures = 0
		st.windowStart = now
	}
	st.failures++

	if st.failures < lp.cfg.MaxFailedAttempts {
		return lp.statusLocked(st, now)
	}

	lockout := lp.lockoutFor(st.strikes)
	st.strikes++
	st.failures = 0
	st.windowStart = now
	st.lockedUntil = now.Add(lockout)

	slog.Warn("account locked after failed logins",
		"category", "auth",
		"account", key,
		"strikes", st.strikes,
		"lockout", lockout,
	)
	return LockStatus{Locked: true, RetryAfter: lockout}
}

// lockoutFor doubles the base lockout per earlier strike, capped at MaxLockout.
func (lp *LoginProtection) lockoutFor(strikes int) time.Duration {
	d := lp.cfg.LockoutDuration
	for i := 0; i < strikes && d < lp.cfg.MaxLockout; i++ {
		d *= 2
	}
	return min(d, lp.cfg.MaxLockout)
}

// Reset forgets the failures of email after a successful login. Earlier
// strikes are forgotten too.
func (lp *LoginProtection) Reset(email string) {
	lp.mu.Lock()
	delete(lp.accounts, accountKey(email))
	lp.mu.Unlock()
}

func (lp *LoginProtection) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lp.sweep()
		case <-lp.stop:
			return
		}
	}
}

// sweep drops accounts whose lockout and attempt window have both passed.
func (lp *LoginProtection) sweep() {
	if lp.ips.clearIfExceeds(maxLimiterEntries) {
		slog.Info("cleared auth IP limiters", "category", "auth")
	}

	now := lp.now()
	lp.mu.Lock()
	defer lp.mu.Unlock()
	for key, st := range lp.accounts {
		if !now.Before(st.lockedUntil) && now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.accounts, key)
		}
	}
}

// Middleware throttles POST requests per client IP with AUTH_RATE_LIMIT.
// Other methods pass through.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && !lp.AllowIP(ClientIP(r)) {
				slog.Warn("auth rate limit exceeded", "category", "auth", "ip", ClientIP(r))
				WriteAPIError(w, http.StatusTooManyRequests, CodeAuthRateLimited,
					"Too many authentication attempts, please try again later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
