// Package model defines the data types shared across the fixrun core.
//
// The central types are:
//   - FixtureDef: a named, scoped setup/teardown definition
//   - TestItem: one runnable test instance with tags and fixture requests
//   - FixtureSetupPlan: a topologically ordered fixture sequence
//   - ExecutionUnit: a test item paired with one resolved plan
//   - RunResult: the recorded outcome of one executed unit
//
// Definitions are produced once by discovery and owned by the registry;
// plans and units are immutable after resolution.
package model
