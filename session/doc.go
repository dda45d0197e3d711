// Package session houses concrete implementations of core.ConversationStore.
// The interface itself lives in the core package; keeping only
// implementations here prevents the engine from depending on concrete
// storage.
//
// Add additional backends in sub-packages (see session/sqlite) without
// changing any calling code; only the wiring layer decides which
// implementation to instantiate.
package session
