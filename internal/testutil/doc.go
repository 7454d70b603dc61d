// Package testutil contains helper builders and stub collaborators used
// across tests to reduce boilerplate when constructing core model objects
// (plans, tasks, results) and scripting planner and notifier behaviors.
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil
