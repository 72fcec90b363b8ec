// Package entities registers every warehouse entity with the core registry.
// Import this package to ensure all entities are registered.
package entities

// This file exists to provide a single import point.
// Each entity file uses init() to register its definition.
