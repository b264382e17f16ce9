// Package bridge owns the lifecycle of the one external runtime environment
// a process may bind to. The binding is single-assignment: once bound, every
// later bind attempt must name the same environment or fail, and the state
// never resets short of a process restart.
package bridge

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/logging"
)

// Capability names a facility a retrieval transport may require
type Capability string

const (
	// CapabilityTabularHTTP is the plain HTTP client transport
	CapabilityTabularHTTP Capability = "tabular-http-client"
	// CapabilityBrowser is the browser-automation transport
	CapabilityBrowser Capability = "browser-automation"
	// CapabilityParsing is HTML/archive parsing support
	CapabilityParsing Capability = "parsing"
)

// RequiredCapabilities is the fixed list reported by Status
var RequiredCapabilities = []Capability{
	CapabilityTabularHTTP,
	CapabilityBrowser,
	CapabilityParsing,
}

// Binding records the environment the process is bound to
type Binding struct {
	EnvID   string
	BoundAt time.Time
}

// Runtime is the product of activating an environment
type Runtime struct {
	Browser *rod.Browser
	cleanup func()
}

// Activator activates a named environment. Swappable for tests.
type Activator func(env Environment) (*Runtime, error)

// Bridge is the process-wide single-assignment binding cell
type Bridge struct {
	mu         sync.Mutex
	descriptor Descriptor
	activate   Activator
	logger     *logging.Logger

	binding *Binding
	runtime *Runtime
}

// New creates a Bridge over the given descriptor. The returned Bridge is
// unbound; EnsureBound performs activation.
func New(descriptor Descriptor, logger *logging.Logger) *Bridge {
	return &Bridge{
		descriptor: descriptor,
		activate:   launchRuntime,
		logger:     logger,
	}
}

// NewWithActivator creates a Bridge with a custom activator (tests)
func NewWithActivator(descriptor Descriptor, logger *logging.Logger, activate Activator) *Bridge {
	b := New(descriptor, logger)
	b.activate = activate
	return b
}

var (
	sharedOnce sync.Once
	shared     *Bridge
)

// Shared returns the process-wide Bridge, creating it on first call.
// Arguments on later calls are ignored: the process has exactly one bridge.
func Shared(descriptor Descriptor, logger *logging.Logger) *Bridge {
	sharedOnce.Do(func() {
		shared = New(descriptor, logger)
	})
	return shared
}

// EnsureBound binds the process to the named environment, activating it on
// first use. Calling again with the same identity is a no-op; a different
// identity fails with BRIDGE_CONFLICT. Activation failures leave the bridge
// unbound and are never silently retried.
func (b *Bridge) EnsureBound(envID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// An undeclared environment is an input error regardless of binding
	// state; BRIDGE_CONFLICT is reserved for two resolvable identities.
	name, env, err := b.descriptor.Resolve(envID)
	if err != nil {
		return dberrors.New(dberrors.InvalidArguments, err.Error(), nil)
	}

	if b.binding != nil {
		// "" and the default environment resolve to the same identity.
		if name == b.binding.EnvID {
			return nil
		}
		return dberrors.New(
			dberrors.BridgeConflict,
			fmt.Sprintf("process already bound to environment %q; cannot rebind to %q",
				b.binding.EnvID, name),
			nil,
		)
	}

	b.logger.Info("Activating runtime environment", map[string]interface{}{
		"environment": name,
	})

	runtime, err := b.activate(env)
	if err != nil {
		return fmt.Errorf("activate environment %q: %w", name, err)
	}

	b.binding = &Binding{EnvID: name, BoundAt: time.Now()}
	b.runtime = runtime
	return nil
}

// Binding returns the current binding, if any, without mutating state
func (b *Bridge) Binding() (Binding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.binding == nil {
		return Binding{}, false
	}
	return *b.binding, true
}

// Browser returns the bound browser runtime. The caller must have bound the
// bridge first.
func (b *Bridge) Browser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.binding == nil || b.runtime == nil {
		return nil, dberrors.New(
			dberrors.BridgeUnbound,
			"no runtime environment bound; call EnsureBound before using the browser-automation transport",
			nil,
		)
	}
	return b.runtime.Browser, nil
}

// Close releases the activated runtime. The binding itself stays set: a
// closed bridge still refuses rebinding to a different identity.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runtime != nil && b.runtime.cleanup != nil {
		b.runtime.cleanup()
	}
	b.runtime = nil
}

// Status is the read-only view of the bridge state
type Status struct {
	BindingExists       bool     `json:"bindingExists"`
	BindingTarget       string   `json:"bindingTarget,omitempty"`
	IsBound             bool     `json:"isBound"`
	MissingCapabilities []string `json:"missingCapabilities"`
	EnvironmentReady    bool     `json:"environmentReady"`
	Hints               []string `json:"hints,omitempty"`
}

// Status reports binding state and capability availability without mutating
// anything
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		MissingCapabilities: []string{},
	}
	if b.binding != nil {
		st.BindingExists = true
		st.BindingTarget = b.binding.EnvID
		st.IsBound = true
		st.EnvironmentReady = b.runtime != nil
	}

	for _, cap := range RequiredCapabilities {
		if !b.capabilityPresent(cap) {
			st.MissingCapabilities = append(st.MissingCapabilities, string(cap))
		}
	}

	switch {
	case !st.IsBound:
		st.Hints = append(st.Hints,
			fmt.Sprintf("run any retrieval command to bind environment %q", b.descriptor.Default))
	case !st.EnvironmentReady:
		st.Hints = append(st.Hints, "runtime was released; restart the process to reactivate")
	}
	for _, missing := range st.MissingCapabilities {
		if missing == string(CapabilityBrowser) {
			st.Hints = append(st.Hints,
				"install a Chromium-based browser or set DOWNBALLOT_BROWSER_BIN for browser-automation sources")
		}
	}

	return st
}

// capabilityPresent probes a single capability. Callers hold b.mu.
func (b *Bridge) capabilityPresent(cap Capability) bool {
	switch cap {
	case CapabilityTabularHTTP, CapabilityParsing:
		// Compiled in; always present.
		return true
	case CapabilityBrowser:
		if b.runtime != nil && b.runtime.Browser != nil {
			return true
		}
		return browserResolvable(b.descriptor)
	default:
		return false
	}
}

func browserResolvable(desc Descriptor) bool {
	if bin := os.Getenv("DOWNBALLOT_BROWSER_BIN"); bin != "" {
		if _, err := os.Stat(bin); err == nil {
			return true
		}
	}
	for _, env := range desc.Environments {
		if env.BrowserBin != "" {
			if _, err := os.Stat(env.BrowserBin); err == nil {
				return true
			}
		}
	}
	_, has := launcher.LookPath()
	return has
}

// launchRuntime is the default activator: it launches and connects the
// browser runtime the browser-automation transport drives
func launchRuntime(env Environment) (*Runtime, error) {
	bin := env.BrowserBin
	if v := os.Getenv("DOWNBALLOT_BROWSER_BIN"); v != "" {
		bin = v
	}

	l := launcher.New().Headless(env.Headless)
	if bin != "" {
		l = l.Bin(bin)
	} else if path, has := launcher.LookPath(); has {
		l = l.Bin(path)
	} else {
		return nil, fmt.Errorf("no browser executable found; set DOWNBALLOT_BROWSER_BIN or install a Chromium-based browser")
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Runtime{
		Browser: browser,
		cleanup: func() {
			_ = browser.Close()
			l.Cleanup()
		},
	}, nil
}
