package adapter

import "errors"

// Sentinel errors for adapter resolution and loading.
var (
	// ErrAdapterNotInstalled means a configured adapter name has no
	// registered factory. This halts startup: continuing would leave
	// every connection on that adapter without a backend.
	ErrAdapterNotInstalled = errors.New("adapter not installed")

	// ErrAdapterAlreadyLoaded means Load was asked to construct an
	// adapter name twice.
	ErrAdapterAlreadyLoaded = errors.New("adapter already loaded")

	// ErrFactoryAlreadyRegistered means two factories claimed one name.
	ErrFactoryAlreadyRegistered = errors.New("adapter factory already registered")

	// ErrAdapterNotLoaded means a lookup named an adapter the registry
	// has not constructed.
	ErrAdapterNotLoaded = errors.New("adapter not loaded")
)
