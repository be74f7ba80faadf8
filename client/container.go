package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jarfuel/waitlist-api/domain/referral"
	"github.com/jarfuel/waitlist-api/domain/waitlist"
	"github.com/jarfuel/waitlist-api/pkg/circuitbreaker"
	"github.com/jarfuel/waitlist-api/pkg/retry"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// Submit has not finished.
var ErrSubmitInFlight = errors.New("a submit is already in flight")

// State is a point-in-time snapshot of the container.
type State struct {
	Count       int64
	CurrentUser *Entry
	IsLoading   bool
	LastError   error
}

type Config struct {
	// BaseURL of the waitlist API, e.g. "https://api.jarfuel.com".
	BaseURL string
	// CachePath is the JSON file that persists the joined user across runs.
	CachePath string
	// LandingURL is the URL the user arrived on; any valid ref code in it is
	// applied to the next Submit.
	LandingURL string
	// HTTPClient is optional; a default with a 10s timeout is used when nil.
	HTTPClient *http.Client
	// Redis is optional and only needed for SubscribeCounts.
	Redis *redis.Client
	// Breaker guards Submit. Defaults apply when nil.
	Breaker *circuitbreaker.Config
	// Retry bounds count refresh attempts. Defaults apply when nil.
	Retry *retry.Config
}

// StateContainer mirrors the waitlist UI state machine: one joined user, a
// live signup count, and explicit loading/error flags. All methods are safe
// for concurrent use.
type StateContainer struct {
	api       *APIClient
	cachePath string
	breaker   circuitbreaker.CircuitBreaker
	retryer   retry.RetryPolicy
	redis     *redis.Client

	mu          sync.RWMutex
	count       int64
	currentUser *Entry
	isLoading   bool
	lastError   error
	pendingRef  string
	inFlight    bool
}

func NewStateContainer(cfg *Config) *StateContainer {
	return &StateContainer{
		api:        NewAPIClient(cfg.BaseURL, cfg.HTTPClient),
		cachePath:  cfg.CachePath,
		breaker:    circuitbreaker.NewCircuitBreaker(cfg.Breaker),
		retryer:    retry.NewExponentialBackoff(cfg.Retry),
		redis:      cfg.Redis,
		pendingRef: referral.ExtractReferralCode(cfg.LandingURL),
	}
}

// Initialize rehydrates the joined user from the cache file and fetches the
// current count. A failed count fetch leaves LastError set but does not block
// startup.
func (sc *StateContainer) Initialize(ctx context.Context) error {
	sc.setLoading(true)
	defer sc.setLoading(false)

	if sc.cachePath != "" {
		cached, err := loadCacheFile(sc.cachePath)
		if err != nil {
			sc.setError(err)
			return err
		}
		sc.mu.Lock()
		sc.currentUser = cached.CurrentUser
		sc.mu.Unlock()
	}

	if err := sc.Refresh(ctx); err != nil {
		sc.setError(err)
		return err
	}

	sc.setError(nil)
	return nil
}

// Refresh refetches the display count with bounded retry. Count reads are
// idempotent, so retrying is safe.
func (sc *StateContainer) Refresh(ctx context.Context) error {
	var result *CountResult

	err := sc.retryer.Execute(func() error {
		fetched, err := sc.api.Count(ctx)
		if err != nil {
			return err
		}
		result = fetched
		return nil
	})
	if err != nil {
		sc.setError(err)
		return err
	}

	sc.mu.Lock()
	sc.count = result.Count
	sc.lastError = nil
	sc.mu.Unlock()
	return nil
}

// Submit joins the waitlist with a single attempt through the circuit
// breaker. Signups are not idempotent from the caller's view mid-flight, so
// there is no automatic retry; when the backend is down the breaker fails
// fast. A concurrent Submit returns ErrSubmitInFlight.
func (sc *StateContainer) Submit(ctx context.Context, email string, opts *JoinOptions) (*JoinResult, error) {
	sc.mu.Lock()
	if sc.inFlight {
		sc.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	sc.inFlight = true
	sc.isLoading = true
	ref := sc.pendingRef
	sc.mu.Unlock()

	defer func() {
		sc.mu.Lock()
		sc.inFlight = false
		sc.isLoading = false
		sc.mu.Unlock()
	}()

	if opts == nil {
		opts = &JoinOptions{}
	}
	if opts.ReferredBy == "" && ref != "" {
		opts.ReferredBy = ref
	}

	var result *JoinResult
	err := sc.breaker.Call(func() error {
		joined, err := sc.api.Join(ctx, email, opts)
		if err != nil {
			return err
		}
		result = joined
		return nil
	})
	if err != nil {
		// CurrentUser is only ever mutated on success.
		sc.setError(err)
		return nil, err
	}

	sc.mu.Lock()
	entry := result.Entry
	sc.currentUser = &entry
	sc.count = result.TotalCount
	sc.lastError = nil
	sc.pendingRef = "" // a ref code is applied at most once
	sc.mu.Unlock()

	if sc.cachePath != "" {
		if err := saveCacheFile(sc.cachePath, &cachedState{CurrentUser: &entry}); err != nil {
			// The join succeeded; a cache write failure only costs rehydration.
			sc.setError(err)
		}
	}

	return result, nil
}

// SubscribeCounts streams the display count after each new signup, driven by
// the server's pub/sub channel. Requires a Redis client; the channel closes
// when ctx is done.
func (sc *StateContainer) SubscribeCounts(ctx context.Context) (<-chan int64, error) {
	if sc.redis == nil {
		return nil, errors.New("redis is not configured")
	}

	sub := sc.redis.Subscribe(ctx, waitlist.InsertedChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	counts := make(chan int64, 1)
	go func() {
		defer close(counts)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				if err := sc.Refresh(ctx); err != nil {
					continue
				}
				select {
				case counts <- sc.Snapshot().Count:
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
					// Slow consumer; drop the update, the next one supersedes it.
				}
			}
		}
	}()

	return counts, nil
}

// Snapshot returns a copy of the current state.
func (sc *StateContainer) Snapshot() State {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	state := State{
		Count:     sc.count,
		IsLoading: sc.isLoading,
		LastError: sc.lastError,
	}
	if sc.currentUser != nil {
		user := *sc.currentUser
		state.CurrentUser = &user
	}
	return state
}

// PendingReferralCode exposes the landing-page ref code that will be attached
// to the next Submit.
func (sc *StateContainer) PendingReferralCode() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.pendingRef
}

func (sc *StateContainer) setLoading(loading bool) {
	sc.mu.Lock()
	sc.isLoading = loading
	sc.mu.Unlock()
}

func (sc *StateContainer) setError(err error) {
	sc.mu.Lock()
	sc.lastError = err
	sc.mu.Unlock()
}
