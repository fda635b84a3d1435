// Package model defines the provider‑agnostic abstractions for interacting
// with language models.
//
// Core goals:
//   - Unify generation behind a single asynchronous interface
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Bound every call with a timeout and optional rate limit (Guarded)
//   - Facilitate lightweight scripted mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement the Model interface so the
// orchestrator and channel adapters stay decoupled from vendor SDKs.
package model
