// Package model defines the provider-agnostic abstraction for text
// generation backends used by chatcore.
//
// Core goals:
//   - One small interface (Probe + Complete) shared by every backend
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockProvider)
//
// Providers (local OpenAI-compatible servers, OpenAI, Anthropic) implement
// Provider in sub-packages so the engine and prober remain decoupled from
// vendor SDKs.
package model
