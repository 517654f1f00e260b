// Package fault defines the error kinds shared by the go-xrd packages.
//
// Configuration-load failures (ErrNetwork, ErrTimeout, ErrFormat,
// ErrIntegrity, ErrTrust) abort the whole load: no partially verified
// configuration is ever exposed. Metadata-request failures (ErrConnection,
// ErrTimeout, ErrFormat, ProtocolFault, ErrAddressResolution) are scoped to
// the single request that raised them.
package fault
