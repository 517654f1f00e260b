// Package sharedparams parses a verified shared-params configuration part
// into a read-only registry of members, subsystems, security servers, global
// groups and central services, and resolves identifiers to security-server
// addresses.
//
// Parse performs no trust checks of its own: feed it only content from a
// configuration part that passed confdir verification.
package sharedparams
